package normalize

import (
	"fmt"
	"sort"
	"strings"

	dErrors "stayreg/pkg/domain-errors"
)

// Field is a logical record field identified from a source column header.
type Field string

const (
	FieldSurname     Field = "surname"
	FieldGivenName   Field = "given_name"
	FieldBirthDate   Field = "birth_date"
	FieldPassport    Field = "passport_number"
	FieldNationality Field = "nationality"
	FieldArrival     Field = "arrival_date"
	FieldDeparture   Field = "departure_date"
	FieldVisaNumber  Field = "visa_number"
	FieldHomeAddress Field = "home_address"
	FieldPurpose     Field = "purpose_code"
	FieldNote        Field = "note"
)

// RequiredFields lists the seven fields every source must provide.
var RequiredFields = []Field{
	FieldSurname, FieldGivenName, FieldBirthDate, FieldPassport,
	FieldNationality, FieldArrival, FieldDeparture,
}

// headerSynonyms is the static mapping of logical field -> accepted column
// header spellings. Matching is case-insensitive; unmatched columns are
// ignored. The table covers the Czech and English spellings seen in the wild.
var headerSynonyms = map[Field][]string{
	FieldSurname:     {"příjmení", "prijmeni", "surname", "last name"},
	FieldGivenName:   {"jméno", "jmeno", "name", "given name", "first name"},
	FieldBirthDate:   {"datum narození", "datum narozeni", "datum_narozeni", "birth date", "date of birth"},
	FieldPassport:    {"číslo pasu", "cislo pasu", "cislo_pasu", "passport number", "passport"},
	FieldNationality: {"státní občanství", "statni obcanstvi", "statni_obcanstvi", "nationality", "občanství", "obcanstvi"},
	FieldArrival:     {"datum příjezdu", "datum prijezdu", "datum_prijezdu", "arrival date", "check-in", "ubytování od kdy"},
	FieldDeparture:   {"datum odjezdu", "datum_odjezdu", "departure date", "check-out", "ubytování do kdy"},
	FieldVisaNumber:  {"číslo víza", "cislo viza", "cislo_viza", "visa number"},
	FieldHomeAddress: {"bydliště v domovské zemi", "bydliste domov", "bydliste_domov", "home address", "adresa ubytování"},
	FieldPurpose:     {"účel pobytu", "ucel pobytu", "ucel_pobytu", "purpose of stay"},
	FieldNote:        {"poznámka", "poznamka", "note", "notes"},
}

// MapHeaders matches source column headers against the synonym table and
// returns logical field -> actual header. A missing required column is a
// structural error that aborts the whole ingestion; no per-row fallback.
func MapHeaders(headers []string) (map[Field]string, error) {
	mapped := make(map[Field]string, len(headerSynonyms))
	for _, header := range headers {
		needle := strings.ToLower(strings.TrimSpace(header))
		for field, synonyms := range headerSynonyms {
			if _, taken := mapped[field]; taken {
				continue
			}
			for _, syn := range synonyms {
				if needle == syn {
					mapped[field] = header
					break
				}
			}
		}
	}

	var missing []string
	for _, field := range RequiredFields {
		if _, ok := mapped[field]; !ok {
			missing = append(missing, string(field))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, dErrors.New(dErrors.CodeStructural,
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}
	return mapped, nil
}
