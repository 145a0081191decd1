// Package entities holds the flat lookup records written to the output files.
// Every record of a service exposes the same ordered columns whether or not
// the entry was found, so the writer can take its header from any record.
package entities

// Record is one output row
type Record interface {
	Columns() []string
	Values() []string
	Entry() string
	IsFound() bool
}

// Compile-time checks
var (
	_ Record = FDARecord{}
	_ Record = SeerRecord{}
)

// FDARecord is the flattened openFDA NDC directory result for one entry
type FDARecord struct {
	Input             string `json:"entry"`
	Found             bool   `json:"found_flag"`
	BrandName         string `json:"brand_name"`
	GenericName       string `json:"generic_name"`
	ActiveIngredients string `json:"active_ingredients"`
	LabelerName       string `json:"labeler_name"`
	PharmClass        string `json:"pharm_class"`
	Route             string `json:"route"`
}

var fdaColumns = []string{
	"entry",
	"found_flag",
	"brand_name",
	"generic_name",
	"active_ingredients",
	"labeler_name",
	"pharm_class",
	"route",
}

// NewFDANotFound returns the not-found record for entry
func NewFDANotFound(entry string) FDARecord {
	return FDARecord{Input: entry}
}

// FDAColumns returns the FDA column header
func FDAColumns() []string {
	return append([]string(nil), fdaColumns...)
}

func (r FDARecord) Columns() []string { return FDAColumns() }
func (r FDARecord) Entry() string     { return r.Input }
func (r FDARecord) IsFound() bool     { return r.Found }

func (r FDARecord) Values() []string {
	return []string{
		r.Input,
		FormatFlag(r.Found),
		r.BrandName,
		r.GenericName,
		r.ActiveIngredients,
		r.LabelerName,
		r.PharmClass,
		r.Route,
	}
}

// SeerRecord is the flattened SEER*Rx drug detail for one entry.
// Histology and Note are part of the layout but no payload field feeds them.
type SeerRecord struct {
	Input         string `json:"entry"`
	Found         bool   `json:"found_flag"`
	AlternateName string `json:"alternate_name"`
	Abbreviation  string `json:"abbreviation"`
	Category      string `json:"category"`
	Drugs         string `json:"drugs"`
	Name          string `json:"name"`
	Histology     string `json:"histology"`
	Note          string `json:"note"`
	PrimarySite   string `json:"primary_site"`
	Radiation     string `json:"radiation"`
	Subcategory   string `json:"subcategory"`
	Remarks       string `json:"remarks"`
}

var seerColumns = []string{
	"entry",
	"found_flag",
	"alternate_name",
	"abbreviation",
	"category",
	"drugs",
	"name",
	"histology",
	"note",
	"primary_site",
	"radiation",
	"subcategory",
	"remarks",
}

// NewSeerNotFound returns the not-found record for entry
func NewSeerNotFound(entry string) SeerRecord {
	return SeerRecord{Input: entry}
}

// SeerColumns returns the SEER column header
func SeerColumns() []string {
	return append([]string(nil), seerColumns...)
}

func (r SeerRecord) Columns() []string { return SeerColumns() }
func (r SeerRecord) Entry() string     { return r.Input }
func (r SeerRecord) IsFound() bool     { return r.Found }

func (r SeerRecord) Values() []string {
	return []string{
		r.Input,
		FormatFlag(r.Found),
		r.AlternateName,
		r.Abbreviation,
		r.Category,
		r.Drugs,
		r.Name,
		r.Histology,
		r.Note,
		r.PrimarySite,
		r.Radiation,
		r.Subcategory,
		r.Remarks,
	}
}

// FormatFlag renders found_flag the way the output files have always shown it
func FormatFlag(found bool) string {
	if found {
		return "True"
	}
	return "False"
}

// AsRecords widens a homogeneous record slice for the writers
func AsRecords[R Record](records []R) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
