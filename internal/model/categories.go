package model

// Category is one of the named value breakdowns carried by an AIH record.
type Category struct {
	Key    string // config name, e.g. "surgical"
	Column string // source column, e.g. "vl_04"
	Label  string // display label
}

// ProcedureGroups lists the SIGTAP procedure groups in canonical order.
var ProcedureGroups = []Category{
	{Key: "diagnostic", Column: "vl_02", Label: "Diagnósticos"},
	{Key: "clinical", Column: "vl_03", Label: "Clínicos"},
	{Key: "surgical", Column: "vl_04", Label: "Cirúrgicos"},
	{Key: "transplant", Column: "vl_05", Label: "Transplantes"},
	{Key: "medication", Column: "vl_06", Label: "Medicamentos"},
	{Key: "prosthesis", Column: "vl_07", Label: "Órteses e Próteses"},
	{Key: "complementary", Column: "vl_08", Label: "Ações Complementares"},
}

// SurgeryGroups lists the surgical sub-groups (group 04) broken down by body system.
var SurgeryGroups = []Category{
	{Key: "skin", Column: "vl_0401", Label: "Pele e Mucosa"},
	{Key: "nervous", Column: "vl_0403", Label: "Sistema Nervoso"},
	{Key: "head_neck", Column: "vl_0404", Label: "Cabeça e Pescoço"},
	{Key: "vision", Column: "vl_0405", Label: "Visão"},
	{Key: "circulatory", Column: "vl_0406", Label: "Aparelho Circulatório"},
	{Key: "digestive", Column: "vl_0407", Label: "Aparelho Digestivo"},
	{Key: "musculoskeletal", Column: "vl_0408", Label: "Osteomuscular"},
	{Key: "genitourinary", Column: "vl_0409", Label: "Geniturinário"},
	{Key: "obstetric", Column: "vl_0411", Label: "Obstétrica"},
	{Key: "oncology", Column: "vl_0416", Label: "Oncologia"},
}

// AllCategories returns procedure groups followed by surgery groups.
func AllCategories() []Category {
	all := make([]Category, 0, len(ProcedureGroups)+len(SurgeryGroups))
	all = append(all, ProcedureGroups...)
	return append(all, SurgeryGroups...)
}

// CategoryColumns returns just the column names of the given categories.
func CategoryColumns(cats []Category) []string {
	cols := make([]string, len(cats))
	for i, c := range cats {
		cols[i] = c.Column
	}
	return cols
}

// CategoryByKey returns the Category for the given config key, or ok=false.
func CategoryByKey(key string) (Category, bool) {
	for _, c := range AllCategories() {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryByColumn returns the Category backed by the given column, or ok=false.
func CategoryByColumn(col string) (Category, bool) {
	for _, c := range AllCategories() {
		if c.Column == col {
			return c, true
		}
	}
	return Category{}, false
}
