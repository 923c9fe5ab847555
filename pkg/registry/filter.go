package registry

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	personTable   = "user_registration"
	photoTable    = "images"
	judicialTable = "judiciary"
)

// Warning is a non-fatal, user-facing message about an input that was ignored.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PersonFilterForm carries the raw listing filter fields as submitted.
type PersonFilterForm struct {
	Infopen       string `form:"infopen" json:"infopen"`
	FullName      string `form:"nome_completo" json:"nome_completo"`
	CPF           string `form:"cpf" json:"cpf"`
	Municipality  string `form:"municipio" json:"municipio"`
	Unit          string `form:"ueop" json:"ueop"`
	Company       string `form:"cia" json:"cia"`
	ModifiedOn    string `form:"data_modificacao" json:"data_modificacao"`
	ModifiedYear  string `form:"ano_modificacao" json:"ano_modificacao"`
	ModifiedMonth string `form:"mes_modificacao" json:"mes_modificacao"`
}

// PersonFilter is the parsed form. Empty strings and nil pointers mean no
// constraint on that field; all present constraints are ANDed.
type PersonFilter struct {
	Infopen      string
	FullName     string
	CPF          string
	Municipality string
	Unit         string
	Company      string

	ModifiedOn *time.Time // start of the civil day
	Year       *int
	Month      *int
}

// ParsePersonFilter validates the date refinements. Malformed values are
// reported as warnings and left out of the filter.
func ParsePersonFilter(form PersonFilterForm, loc *time.Location) (PersonFilter, []Warning) {
	if loc == nil {
		loc = time.UTC
	}
	f := PersonFilter{
		Infopen:      strings.TrimSpace(form.Infopen),
		FullName:     strings.TrimSpace(form.FullName),
		CPF:          strings.TrimSpace(form.CPF),
		Municipality: strings.TrimSpace(form.Municipality),
		Unit:         strings.TrimSpace(form.Unit),
		Company:      strings.TrimSpace(form.Company),
	}
	var warnings []Warning

	if v := strings.TrimSpace(form.ModifiedOn); v != "" {
		if d, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
			f.ModifiedOn = &d
		} else {
			warnings = append(warnings, Warning{Field: "data_modificacao", Message: ErrInvalidDate.Error()})
		}
	}
	if v := strings.TrimSpace(form.ModifiedYear); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 && y <= 9999 {
			f.Year = &y
		} else {
			warnings = append(warnings, Warning{Field: "ano_modificacao", Message: "invalid year, use a number (e.g. 2026)"})
		}
	}
	if v := strings.TrimSpace(form.ModifiedMonth); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			f.Month = &m
		} else {
			warnings = append(warnings, Warning{Field: "mes_modificacao", Message: "invalid month, use a number between 1 and 12"})
		}
	}
	return f, warnings
}

// IsEmpty reports whether the filter matches every Person.
func (f PersonFilter) IsEmpty() bool {
	return f.Infopen == "" && f.FullName == "" && f.CPF == "" && f.Municipality == "" &&
		f.Unit == "" && f.Company == "" && f.ModifiedOn == nil && f.Year == nil && f.Month == nil
}

func (f PersonFilter) apply(tx *gorm.DB, loc *time.Location) *gorm.DB {
	tx = whereContains(tx, personTable+".infopen", f.Infopen)
	tx = whereContains(tx, personTable+".nome_completo", f.FullName)
	tx = whereContains(tx, personTable+".cpf", f.CPF)
	tx = whereContains(tx, personTable+".municipio", f.Municipality)
	tx = whereContains(tx, personTable+".ueop", f.Unit)
	tx = whereContains(tx, personTable+".cia", f.Company)

	col := personTable + ".data_modificacao"
	if f.ModifiedOn != nil {
		start := f.ModifiedOn.In(loc)
		tx = tx.Where(col+" >= ? AND "+col+" < ?", start, start.AddDate(0, 0, 1))
	}
	if f.Year != nil {
		start := time.Date(*f.Year, time.January, 1, 0, 0, 0, 0, loc)
		tx = tx.Where(col+" >= ? AND "+col+" < ?", start, start.AddDate(1, 0, 0))
	}
	if f.Month != nil {
		tx = whereMonth(tx, col, *f.Month, loc)
	}
	return tx
}

// whereMonth matches the civil month of a timestamp column regardless of year.
func whereMonth(tx *gorm.DB, col string, month int, loc *time.Location) *gorm.DB {
	switch tx.Dialector.Name() {
	case "sqlite":
		// timestamps are stored as text in the civil offset: YYYY-MM-DD HH:MM:SS...
		return tx.Where("CAST(substr("+col+", 6, 2) AS INTEGER) = ?", month)
	default:
		return tx.Where("EXTRACT(MONTH FROM "+col+" AT TIME ZONE ?) = ?", loc.String(), month)
	}
}

// JudicialFilterForm carries the raw judicial listing filters.
type JudicialFilterForm struct {
	Infopen    string `form:"filter_infopen" json:"filter_infopen"`
	Name       string `form:"filter_nome" json:"filter_nome"`
	SEEUNumber string `form:"filter_numero_seeu" json:"filter_numero_seeu"`
}

// JudicialFilter matches JudicialNote rows; Name tests the owning Person's name.
type JudicialFilter struct {
	Infopen    string
	Name       string
	SEEUNumber string
}

func ParseJudicialFilter(form JudicialFilterForm) JudicialFilter {
	return JudicialFilter{
		Infopen:    strings.TrimSpace(form.Infopen),
		Name:       strings.TrimSpace(form.Name),
		SEEUNumber: strings.TrimSpace(form.SEEUNumber),
	}
}

func (f JudicialFilter) IsEmpty() bool {
	return f.Infopen == "" && f.Name == "" && f.SEEUNumber == ""
}

// apply expects the query to already join user_registration.
func (f JudicialFilter) apply(tx *gorm.DB) *gorm.DB {
	tx = whereContains(tx, judicialTable+".infopen", f.Infopen)
	tx = whereContains(tx, personTable+".nome_completo", f.Name)
	tx = whereContains(tx, judicialTable+".numero_seeu", f.SEEUNumber)
	return tx
}

// whereContains adds a case-insensitive substring match. Both sides are
// uppercased so the match behaves the same on postgres and sqlite.
func whereContains(tx *gorm.DB, col, value string) *gorm.DB {
	if value == "" {
		return tx
	}
	return tx.Where("UPPER("+col+") LIKE ? ESCAPE '\\'", likePattern(value))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(value string) string {
	return "%" + likeEscaper.Replace(strings.ToUpper(value)) + "%"
}
