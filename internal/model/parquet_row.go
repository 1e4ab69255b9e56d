package model

// AIHParquetRow mirrors the Parquet layout of an AIH extract. Money fields are
// float64 matching the Parquet representation; they get rounded to cents
// during normalization.
type AIHParquetRow struct {
	State             string  `parquet:"uf_nome"`
	Municipality      string  `parquet:"nome_municipio"`
	MunicipalityCode  string  `parquet:"cod_municipio"`
	Region            *string `parquet:"regiao_nome,optional"`
	Year              *int32  `parquet:"ano_aih,optional"`
	Month             *int32  `parquet:"mes_aih,optional"`
	Competence        *string `parquet:"competencia,optional"` // AAAAMM, used when year/month are absent
	PopulationBracket *string `parquet:"faixa_populacional,optional"`

	Value    float64 `parquet:"vl_total"`
	Quantity int64   `parquet:"qtd_total"`

	// Procedure groups
	VL02 *float64 `parquet:"vl_02,optional"`
	VL03 *float64 `parquet:"vl_03,optional"`
	VL04 *float64 `parquet:"vl_04,optional"`
	VL05 *float64 `parquet:"vl_05,optional"`
	VL06 *float64 `parquet:"vl_06,optional"`
	VL07 *float64 `parquet:"vl_07,optional"`
	VL08 *float64 `parquet:"vl_08,optional"`

	// Surgical sub-groups
	VL0401 *float64 `parquet:"vl_0401,optional"`
	VL0403 *float64 `parquet:"vl_0403,optional"`
	VL0404 *float64 `parquet:"vl_0404,optional"`
	VL0405 *float64 `parquet:"vl_0405,optional"`
	VL0406 *float64 `parquet:"vl_0406,optional"`
	VL0407 *float64 `parquet:"vl_0407,optional"`
	VL0408 *float64 `parquet:"vl_0408,optional"`
	VL0409 *float64 `parquet:"vl_0409,optional"`
	VL0411 *float64 `parquet:"vl_0411,optional"`
	VL0416 *float64 `parquet:"vl_0416,optional"`

	// Reference attributes, present when the extract was joined upstream
	Latitude   *float64 `parquet:"latitude,optional"`
	Longitude  *float64 `parquet:"longitude,optional"`
	Population *int64   `parquet:"numero_habitantes,optional"`
}

// CategoryValues returns a map of column name -> *float64 for every category column.
func (r *AIHParquetRow) CategoryValues() map[string]*float64 {
	return map[string]*float64{
		"vl_02":   r.VL02,
		"vl_03":   r.VL03,
		"vl_04":   r.VL04,
		"vl_05":   r.VL05,
		"vl_06":   r.VL06,
		"vl_07":   r.VL07,
		"vl_08":   r.VL08,
		"vl_0401": r.VL0401,
		"vl_0403": r.VL0403,
		"vl_0404": r.VL0404,
		"vl_0405": r.VL0405,
		"vl_0406": r.VL0406,
		"vl_0407": r.VL0407,
		"vl_0408": r.VL0408,
		"vl_0409": r.VL0409,
		"vl_0411": r.VL0411,
		"vl_0416": r.VL0416,
	}
}
