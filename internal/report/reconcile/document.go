package reconcile

import (
	"regexp"
	"strconv"
	"strings"

	"stayreg/internal/report/models"
)

// Confirmation documents are free text produced by the service in its own
// language. Two fixed headings split the body into an accepted and a rejected
// section; people are listed as "Surname GivenName", rejected entries with a
// reason. Heading spellings wobble with text extraction, so diacritics are
// matched loosely. Headings only count as standalone upper-case lines: the
// summary near the top repeats the rejected wording in sentence case with a
// colon-count ("Seznam nepřijatých záznamů: N") and must not open a section.
var (
	acceptedHeading = regexp.MustCompile(`(?m)^\s*SEZNAM\s+P\p{L}?IJAT\p{L}?CH\s+Z\p{L}?ZNAM\p{L}?\s*$`)
	rejectedHeading = regexp.MustCompile(`(?m)^\s*SEZNAM\s+NEP\p{L}?IJAT\p{L}?CH\s+Z\p{L}?ZNAM\p{L}?\s*$`)

	totalCount    = regexp.MustCompile(`Celkový počet záznamů:\s*(\d+)`)
	acceptedCount = regexp.MustCompile(`Počet přijatých záznamů:\s*(\d+)`)
	rejectedCount = regexp.MustCompile(`Seznam nepřijatých záznamů:\s*(\d+)`)

	// pipe style: "12 ERR: ... \n  Surname | Given | ..." with the reason on
	// a later "ERR: reason" line
	pipeEntry = regexp.MustCompile(`^\s*(?:\d+\s*)?(?:ERR:?\s*)?([\p{L}'’-]+)\s*\|\s*([\p{L}'’-]+)\s*\|`)
	errReason = regexp.MustCompile(`ERR:\s*(.+)`)

	// plain style: "Surname Given — reason" or a bare "Surname Given"
	plainEntry = regexp.MustCompile(`^\s*(?:ERR:?\s*)?([\p{L}'’-]+)\s+([\p{L}'’-]+)\s*(?:[—–-]\s+(.+))?\s*$`)
)

// entry is one person mentioned by the confirmation document.
type entry struct {
	Surname   string
	GivenName string
	Reason    string
}

type parsedDocument struct {
	Summary  models.ReconciliationSummary
	Accepted []entry
	Rejected []entry
}

// parseDocument splits the extracted text into accepted/rejected blocks and
// pulls out the per-person entries and record counts.
func parseDocument(text string) parsedDocument {
	var doc parsedDocument

	doc.Summary.Total = firstInt(totalCount, text)
	doc.Summary.Accepted = firstInt(acceptedCount, text)
	doc.Summary.Rejected = firstInt(rejectedCount, text)

	acceptedBlock, rejectedBlock := splitBlocks(text)

	accepted, demoted := parseBlock(acceptedBlock, false)
	rejected, _ := parseBlock(rejectedBlock, true)

	doc.Accepted = accepted
	doc.Rejected = append(rejected, demoted...)

	// Entries marked ERR inside the accepted section (remote-side duplicates,
	// typically) count against the accepted total.
	if len(demoted) > 0 {
		doc.Summary.Accepted = max(0, doc.Summary.Accepted-len(demoted))
		doc.Summary.Rejected += len(demoted)
	}
	return doc
}

// splitBlocks returns the text of the accepted and rejected sections. Either
// section may appear first; a block ends at the other heading or at the end
// of the document.
func splitBlocks(text string) (acceptedBlock, rejectedBlock string) {
	rejLoc := rejectedHeading.FindStringIndex(text)
	accLoc := acceptedHeading.FindStringIndex(text)

	if accLoc != nil {
		end := len(text)
		if rejLoc != nil && rejLoc[0] > accLoc[1] {
			end = rejLoc[0]
		}
		acceptedBlock = text[accLoc[1]:end]
	}
	if rejLoc != nil {
		end := len(text)
		if accLoc != nil && accLoc[0] > rejLoc[1] {
			end = accLoc[0]
		}
		rejectedBlock = text[rejLoc[1]:end]
	}
	return acceptedBlock, rejectedBlock
}

// parseBlock extracts entries from one section. In a rejected block every
// entry carries a reason, inline after a dash or on the following line. In an
// accepted block bare name pairs are accepted entries, while ERR-marked lines
// are demoted to rejections.
func parseBlock(block string, rejectedBlock bool) (entries, demoted []entry) {
	lines := strings.Split(block, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		var e entry
		var matched, hadErr bool
		if m := pipeEntry.FindStringSubmatch(line); m != nil {
			e = entry{Surname: m[1], GivenName: m[2]}
			matched = true
			// reason lives on the next non-empty line, unless that line
			// starts another entry
			for j := i + 1; j < len(lines); j++ {
				if strings.TrimSpace(lines[j]) == "" {
					continue
				}
				if rm := errReason.FindStringSubmatch(lines[j]); rm != nil && !pipeEntry.MatchString(lines[j]) {
					e.Reason = strings.TrimSpace(rm[1])
					hadErr = true
					i = j
				}
				break
			}
		} else if m := plainEntry.FindStringSubmatch(line); m != nil {
			e = entry{Surname: m[1], GivenName: m[2], Reason: strings.TrimSpace(m[3])}
			matched = true
			if rejectedBlock && e.Reason == "" {
				// the free-text reason is the immediately following line
				if i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" && !isEntryLine(lines[i+1]) {
					e.Reason = strings.TrimSpace(lines[i+1])
					i++
				}
			}
		}
		if !matched || isHeaderRow(e) {
			continue
		}
		e.Reason = repairReason(e.Reason)

		isErr := hadErr || strings.Contains(line, "ERR")
		switch {
		case rejectedBlock:
			entries = append(entries, e)
		case isErr:
			demoted = append(demoted, e)
		default:
			e.Reason = ""
			entries = append(entries, e)
		}
	}
	return entries, demoted
}

func isEntryLine(line string) bool {
	return pipeEntry.MatchString(line) || plainEntry.MatchString(line)
}

// isHeaderRow drops the column header the service prints above its tables.
func isHeaderRow(e entry) bool {
	s := strings.ToLower(e.Surname)
	g := strings.ToLower(e.GivenName)
	return s == "příjmení" || s == "prijmeni" || g == "jméno" || g == "jmeno"
}

// repairReason fixes the service's known typo in rejection reasons.
func repairReason(reason string) string {
	return strings.ReplaceAll(reason, "číslocestovního", "číslo cestovního")
}

func firstInt(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
