package model

// EncounterRow mirrors the Parquet schema of an encounter input file.
// dx and pc are LIST columns of code strings; id is optional.
type EncounterRow struct {
	ID string   `parquet:"id,optional"`
	Dx []string `parquet:"dx,list"`
	Pc []string `parquet:"pc,list"`
}

// Record returns the encounter's codes as a classification Record.
func (r *EncounterRow) Record() Record {
	return Record{Dx: r.Dx, Pc: r.Pc}
}

// ResultRow mirrors the Parquet schema of a classification output file.
// Flags are 0/1 int32 to match the integer matrix the classifier reports.
type ResultRow struct {
	ID             string `parquet:"id,optional"`
	Neuromusc      int32  `parquet:"neuromusc"`
	CVD            int32  `parquet:"cvd"`
	Respiratory    int32  `parquet:"respiratory"`
	Renal          int32  `parquet:"renal"`
	GI             int32  `parquet:"gi"`
	HematoImmu     int32  `parquet:"hemato_immu"`
	Metabolic      int32  `parquet:"metabolic"`
	CongeniGenetic int32  `parquet:"congeni_genetic"`
	Malignancy     int32  `parquet:"malignancy"`
	Neonatal       int32  `parquet:"neonatal"`
	TechDep        int32  `parquet:"tech_dep"`
	Transplant     int32  `parquet:"transplant"`
	CCCFlag        int32  `parquet:"ccc_flag"`
}

// NewResultRow flattens a Result into its Parquet row.
func NewResultRow(id string, r Result) ResultRow {
	v := r.Values()
	return ResultRow{
		ID:             id,
		Neuromusc:      int32(v[Neuromusc]),
		CVD:            int32(v[CVD]),
		Respiratory:    int32(v[Respiratory]),
		Renal:          int32(v[Renal]),
		GI:             int32(v[GI]),
		HematoImmu:     int32(v[HematoImmu]),
		Metabolic:      int32(v[Metabolic]),
		CongeniGenetic: int32(v[CongeniGenetic]),
		Malignancy:     int32(v[Malignancy]),
		Neonatal:       int32(v[Neonatal]),
		TechDep:        int32(v[TechDep]),
		Transplant:     int32(v[Transplant]),
		CCCFlag:        int32(v[NumCategories]),
	}
}
