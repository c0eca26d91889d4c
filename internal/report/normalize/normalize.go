// Package normalize parses and repairs raw spreadsheet field values.
//
// Every function takes a loosely-formatted scalar and returns either the
// canonical value or a validation error naming what is wrong. Nothing here
// panics on malformed input; it reports.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	dErrors "stayreg/pkg/domain-errors"
)

// namePattern allows letters (including accented), apostrophes, hyphens and
// internal spaces. The source data is multi-script European names.
var namePattern = regexp.MustCompile(`^[\p{L}][\p{L}'’ -]*$`)

var birthSeparators = strings.NewReplacer(".", "", "-", "", "/", "", " ", "")

// stayDateLayouts are tried in order when parsing arrival/departure dates.
// Sources are day-first; ISO is accepted for exports that round-tripped.
var stayDateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"2006-01-02",
}

// countryCodes maps country names (upper-cased, as they appear in source
// sheets in Czech and English) to ISO-3 codes. Codes themselves pass through.
var countryCodes = map[string]string{
	"UKRAJINA":  "UKR",
	"UKRAINE":   "UKR",
	"UKRAINA":   "UKR",
	"SLOVENSKO": "SVK",
	"SLOVAKIA":  "SVK",
	"POLSKO":    "POL",
	"POLAND":    "POL",
	"NĚMECKO":   "DEU",
	"NEMECKO":   "DEU",
	"GERMANY":   "DEU",
	"RUMUNSKO":  "ROU",
	"ROMANIA":   "ROU",
	"MAĎARSKO":  "HUN",
	"MADARSKO":  "HUN",
	"HUNGARY":   "HUN",
	"RAKOUSKO":  "AUT",
	"AUSTRIA":   "AUT",
	"BULHARSKO": "BGR",
	"BULGARIA":  "BGR",
	"MOLDAVSKO": "MDA",
	"MOLDOVA":   "MDA",
}

// hostCountrySynonyms lists every spelling of the host nation seen in source
// sheets. The system reports foreigners only; all of these are refused.
var hostCountrySynonyms = map[string][]string{
	"CZE": {"CZE", "CZ", "CZK", "CZECH", "CZECHIA", "ČESKO", "CESKO", "ČESKÁ REPUBLIKA", "CESKA REPUBLIKA"},
}

// Normalizer repairs raw field values into their canonical forms.
type Normalizer struct {
	hostCountry string
	forbidden   map[string]struct{}
}

// New builds a Normalizer for the given host country ISO-3 code.
func New(hostCountry string) *Normalizer {
	host := strings.ToUpper(strings.TrimSpace(hostCountry))
	forbidden := map[string]struct{}{host: {}}
	for _, syn := range hostCountrySynonyms[host] {
		forbidden[syn] = struct{}{}
	}
	return &Normalizer{hostCountry: host, forbidden: forbidden}
}

// BirthDate normalizes a birth date to the canonical 8-digit DDMMYYYY string.
//
// Separators ('.', '-', '/') and spaces are stripped first. A 7-digit result
// is left-padded with a single '0': spreadsheet tools frequently drop a
// leading zero from numeric-looking date strings. Besides the standard
// DDMMYYYY form, the service accepts 00MMYYYY (day unknown) and 0000YYYY
// (day and month unknown).
func (n *Normalizer) BirthDate(raw string) (string, error) {
	digits := birthSeparators.Replace(strings.TrimSpace(raw))
	if digits == "" {
		return "", dErrors.New(dErrors.CodeValidation, "birth date is required")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("birth date %q contains non-digits", raw))
		}
	}
	if len(digits) == 7 {
		digits = "0" + digits
	}
	if len(digits) != 8 {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("birth date %q must have 8 digits (DDMMYYYY)", raw))
	}

	day, _ := strconv.Atoi(digits[:2])
	month, _ := strconv.Atoi(digits[2:4])
	switch {
	case day == 0 && month == 0:
		// unknown day and month
	case day == 0 && month >= 1 && month <= 31:
		// unknown exact day, month slot may carry a day-of-year style value
	case day >= 1 && day <= 31 && month >= 1 && month <= 12:
		// standard DDMMYYYY
	default:
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("birth date %q has impossible day/month", raw))
	}
	return digits, nil
}

// Nationality normalizes a nationality value to an ISO-3 code. Known country
// names are translated; the result must be exactly 3 letters and must not be
// the host nation in any spelling.
func (n *Normalizer) Nationality(raw string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" {
		return "", dErrors.New(dErrors.CodeValidation, "nationality is required")
	}
	if _, ok := n.forbidden[v]; ok {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("nationality %s refused: only foreign nationals are reported", n.hostCountry))
	}
	if code, ok := countryCodes[v]; ok {
		v = code
	}
	if _, ok := n.forbidden[v]; ok {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("nationality %s refused: only foreign nationals are reported", n.hostCountry))
	}
	if len(v) != 3 || !isAlpha(v) {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("nationality %q is not a 3-letter country code", raw))
	}
	return v, nil
}

// Name normalizes a surname or given name: trimmed, letters with apostrophes,
// hyphens and internal spaces only.
func (n *Normalizer) Name(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !namePattern.MatchString(v) {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("name %q contains invalid characters", raw))
	}
	return v, nil
}

// Passport normalizes a passport number: trimmed, upper-cased, 4-30
// characters, no character-set restriction.
func (n *Normalizer) Passport(raw string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if count := utf8.RuneCountInString(v); count < 4 || count > 30 {
		return "", dErrors.New(dErrors.CodeValidation, "passport number must be 4-30 characters")
	}
	return v, nil
}

// StayDate parses an arrival or departure date, day-first.
func (n *Normalizer) StayDate(raw string) (time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "date is required")
	}
	for _, layout := range stayDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("cannot parse date %q", raw))
}

// PurposeCode parses the optional purpose-of-stay code (0-99). Blank input
// yields the service default 99.
func (n *Normalizer) PurposeCode(raw string) (int, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 99, nil
	}
	code, err := strconv.Atoi(v)
	if err != nil || code < 0 || code > 99 {
		return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("purpose code %q must be a number 0-99", raw))
	}
	return code, nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
