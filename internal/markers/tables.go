package markers

import "labsignal/domain/insight"

// Canonical marker names
const (
	Testosterone           = "Testosterone"
	FreeTestosterone       = "Free Testosterone"
	Estradiol              = "Estradiol"
	SHBG                   = "SHBG"
	DHT                    = "DHT"
	LH                     = "LH"
	FSH                    = "FSH"
	Prolactin              = "Prolactin"
	Cortisol               = "Cortisol"
	TSH                    = "TSH"
	FreeT4                 = "Free T4"
	Hematocrit             = "Hematocrit"
	Hemoglobin             = "Hemoglobin"
	RedBloodCells          = "Red Blood Cells"
	Platelets              = "Platelets"
	Ferritin               = "Ferritin"
	TotalCholesterol       = "Total Cholesterol"
	LDLCholesterol         = "LDL Cholesterol"
	HDLCholesterol         = "HDL Cholesterol"
	NonHDLCholesterol      = "Non-HDL Cholesterol"
	Triglycerides          = "Triglycerides"
	ApolipoproteinB        = "Apolipoprotein B"
	Glucose                = "Glucose"
	Insulin                = "Insulin"
	HbA1c                  = "HbA1c"
	HOMAIR                 = "HOMA-IR"
	FreeAndrogenIndex      = "Free Androgen Index"
	TGHDLRatio             = "TG/HDL Ratio"
	LDLHDLRatio            = "LDL/HDL Ratio"
	AtherogenicCoefficient = "Atherogenic Coefficient"
	PSA                    = "PSA"
	ALT                    = "ALT"
	AST                    = "AST"
	GGT                    = "GGT"
	Creatinine             = "Creatinine"
	EGFR                   = "eGFR"
	Albumin                = "Albumin"
	CRP                    = "CRP"
	VitaminD               = "Vitamin D"
)

const (
	lagHormones     = 10
	lagInflammation = 14
	lagHematology   = 21
	lagLipids       = 28
)

// DefaultTables returns the built-in marker knowledge
func DefaultTables() Tables {
	return Tables{
		Aliases:          defaultAliases(),
		Units:            defaultUnits(),
		LagDays:          defaultLags(),
		DefaultLagDays:   21,
		Weights:          defaultWeights(),
		DefaultWeight:    55,
		ExpectedPositive: []string{Testosterone, FreeTestosterone, FreeAndrogenIndex},
		Zones:            defaultZones(),
		Thresholds:       defaultThresholds(),
	}
}

// DefaultCatalog builds a Catalog from DefaultTables
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultTables())
}

func defaultAliases() map[string]string {
	return map[string]string{
		"testosteron":                        Testosterone,
		"total testosterone":                 Testosterone,
		"testosterone total":                 Testosterone,
		"testosteron totaal":                 Testosterone,
		"totaal testosteron":                 Testosterone,
		"tt":                                 Testosterone,
		"free t":                             FreeTestosterone,
		"ft":                                 FreeTestosterone,
		"vrij testosteron":                   FreeTestosterone,
		"testosteron vrij":                   FreeTestosterone,
		"free testosterone direct":           FreeTestosterone,
		"oestradiol":                         Estradiol,
		"e2":                                 Estradiol,
		"estradiol sensitive":                Estradiol,
		"17 beta estradiol":                  Estradiol,
		"sex hormone binding globulin":       SHBG,
		"geslachtshormoon bindend globuline": SHBG,
		"dihydrotestosterone":                DHT,
		"dihydrotestosteron":                 DHT,
		"luteinizing hormone":                LH,
		"luteiniserend hormoon":              LH,
		"follicle stimulating hormone":       FSH,
		"follikelstimulerend hormoon":        FSH,
		"prolactine":                         Prolactin,
		"prl":                                Prolactin,
		"ft4":                                FreeT4,
		"vrij t4":                            FreeT4,
		"haematocrit":                        Hematocrit,
		"hematocriet":                        Hematocrit,
		"hct":                                Hematocrit,
		"ht":                                 Hematocrit,
		"haemoglobin":                        Hemoglobin,
		"hemoglobine":                        Hemoglobin,
		"hb":                                 Hemoglobin,
		"hgb":                                Hemoglobin,
		"rbc":                                RedBloodCells,
		"erythrocytes":                       RedBloodCells,
		"erytrocyten":                        RedBloodCells,
		"erythrocyten":                       RedBloodCells,
		"plt":                                Platelets,
		"trombocyten":                        Platelets,
		"thrombocytes":                       Platelets,
		"ferritine":                          Ferritin,
		"cholesterol":                        TotalCholesterol,
		"cholesterol totaal":                 TotalCholesterol,
		"totaal cholesterol":                 TotalCholesterol,
		"tc":                                 TotalCholesterol,
		"ldl":                                LDLCholesterol,
		"ldl c":                              LDLCholesterol,
		"ldl cholesterol berekend":           LDLCholesterol,
		"hdl":                                HDLCholesterol,
		"hdl c":                              HDLCholesterol,
		"non hdl":                            NonHDLCholesterol,
		"non hdl c":                          NonHDLCholesterol,
		"triglyceriden":                      Triglycerides,
		"tg":                                 Triglycerides,
		"trigs":                              Triglycerides,
		"apob":                               ApolipoproteinB,
		"apo b":                              ApolipoproteinB,
		"apolipoproteine b":                  ApolipoproteinB,
		"fasting glucose":                    Glucose,
		"glucose nuchter":                    Glucose,
		"nuchter glucose":                    Glucose,
		"insuline":                           Insulin,
		"fasting insulin":                    Insulin,
		"haemoglobin hba1c":                  HbA1c,
		"hemoglobin a1c":                     HbA1c,
		"a1c":                                HbA1c,
		"glycated hemoglobin":                HbA1c,
		"homa ir":                            HOMAIR,
		"fai":                                FreeAndrogenIndex,
		"prostate specific antigen":          PSA,
		"total psa":                          PSA,
		"alat":                               ALT,
		"sgpt":                               ALT,
		"alanine aminotransferase":           ALT,
		"asat":                               AST,
		"sgot":                               AST,
		"aspartate aminotransferase":         AST,
		"gamma gt":                           GGT,
		"gamma glutamyltransferase":          GGT,
		"kreatinine":                         Creatinine,
		"egfr":                               EGFR,
		"creat":                              Creatinine,
		"albumine":                           Albumin,
		"c reactive protein":                 CRP,
		"c reactief proteine":                CRP,
		"hs crp":                             CRP,
		"hscrp":                              CRP,
		"vitamine d":                         VitaminD,
		"25 oh vitamin d":                    VitaminD,
		"25 oh d":                            VitaminD,
		"vitamin d3":                         VitaminD,
	}
}

func defaultUnits() map[string]UnitDef {
	lipid := func(factor float64) UnitDef {
		return UnitDef{EU: "mmol/L", US: "mg/dL", Factor: factor}
	}
	return map[string]UnitDef{
		Testosterone: {EU: "nmol/L", US: "ng/dL", Factor: 28.842,
			Inputs: map[string]float64{"ng/mL": 100 / 28.842}},
		FreeTestosterone: {EU: "pmol/L", US: "pg/mL", Factor: 0.28842,
			Inputs: map[string]float64{"ng/dL": 10 / 0.28842, "nmol/L": 1000}},
		Estradiol: {EU: "pmol/L", US: "pg/mL", Factor: 1 / 3.671,
			Inputs: map[string]float64{"ng/L": 3.671}},
		SHBG:       {EU: "nmol/L", US: "nmol/L", Factor: 1},
		LH:         {EU: "IU/L", US: "mIU/mL", Factor: 1},
		FSH:        {EU: "IU/L", US: "mIU/mL", Factor: 1},
		Prolactin:  {EU: "mIU/L", US: "ng/mL", Factor: 1 / 21.2},
		Cortisol:   {EU: "nmol/L", US: "ug/dL", Factor: 1 / 27.59},
		FreeT4:     {EU: "pmol/L", US: "ng/dL", Factor: 1 / 12.87},
		Hematocrit: {EU: "%", US: "%", Factor: 1, Inputs: map[string]float64{"L/L": 100}},
		Hemoglobin: {EU: "mmol/L", US: "g/dL", Factor: 1.611,
			Inputs: map[string]float64{"g/L": 1 / (10 * 1.611)}},
		Ferritin:          {EU: "ug/L", US: "ng/mL", Factor: 1},
		TotalCholesterol:  lipid(38.67),
		LDLCholesterol:    lipid(38.67),
		HDLCholesterol:    lipid(38.67),
		NonHDLCholesterol: lipid(38.67),
		Triglycerides:     lipid(88.57),
		ApolipoproteinB:   {EU: "g/L", US: "mg/dL", Factor: 100},
		Glucose:           lipid(18.016),
		Insulin: {EU: "pmol/L", US: "uIU/mL", Factor: 1.0 / 6,
			Inputs: map[string]float64{"mU/L": 6}},
		HbA1c:      {EU: "mmol/mol", US: "%", Factor: 0.09148, Offset: 2.152},
		PSA:        {EU: "ug/L", US: "ng/mL", Factor: 1},
		ALT:        {EU: "U/L", US: "U/L", Factor: 1},
		AST:        {EU: "U/L", US: "U/L", Factor: 1},
		GGT:        {EU: "U/L", US: "U/L", Factor: 1},
		Creatinine: {EU: "umol/L", US: "mg/dL", Factor: 1 / 88.42},
		Albumin:    {EU: "g/L", US: "g/dL", Factor: 0.1},
		CRP:        {EU: "mg/L", US: "mg/L", Factor: 1, Inputs: map[string]float64{"mg/dL": 10}},
		VitaminD:   {EU: "nmol/L", US: "ng/mL", Factor: 1 / 2.496},
	}
}

func defaultLags() map[string]int {
	lags := make(map[string]int)
	for _, m := range []string{Testosterone, FreeTestosterone, Estradiol, SHBG, DHT, LH, FSH,
		Prolactin, Cortisol, TSH, FreeT4, FreeAndrogenIndex} {
		lags[m] = lagHormones
	}
	lags[CRP] = lagInflammation
	for _, m := range []string{Hematocrit, Hemoglobin, RedBloodCells, Platelets, Ferritin} {
		lags[m] = lagHematology
	}
	for _, m := range []string{TotalCholesterol, LDLCholesterol, HDLCholesterol, NonHDLCholesterol,
		Triglycerides, ApolipoproteinB, TGHDLRatio, LDLHDLRatio, AtherogenicCoefficient} {
		lags[m] = lagLipids
	}
	return lags
}

func defaultWeights() map[string]int {
	return map[string]int{
		Testosterone:      95,
		FreeTestosterone:  92,
		Hematocrit:        90,
		ApolipoproteinB:   90,
		Estradiol:         88,
		Hemoglobin:        85,
		LDLCholesterol:    85,
		PSA:               80,
		FreeAndrogenIndex: 80,
		HDLCholesterol:    75,
		Triglycerides:     70,
		SHBG:              70,
		HbA1c:             70,
		RedBloodCells:     70,
		TotalCholesterol:  65,
		ALT:               65,
		HOMAIR:            65,
		CRP:               65,
		LH:                60,
		Prolactin:         60,
		AST:               60,
		Creatinine:        60,
		Glucose:           60,
		FSH:               55,
		Ferritin:          55,
		Platelets:         55,
	}
}

func defaultZones() map[string]Zone {
	return map[string]Zone{
		Testosterone:     {Min: 15, Max: 35},
		FreeTestosterone: {Min: 250, Max: 700},
		Estradiol:        {Min: 70, Max: 180},
		Hematocrit:       {Min: 40, Max: 52},
		SHBG:             {Min: 20, Max: 60},
	}
}

func defaultThresholds() []ThresholdRule {
	rising, falling := insight.DirectionRising, insight.DirectionFalling
	return []ThresholdRule{
		{Marker: Hematocrit, Direction: rising, EU: 52, US: 52, Label: "hematocrit above 52%"},
		{Marker: Hematocrit, Direction: rising, EU: 54, US: 54, Label: "hematocrit above 54%"},
		{Marker: Hemoglobin, Direction: rising, EU: 11.2, US: 18.0, Label: "hemoglobin above upper limit"},
		{Marker: LDLCholesterol, Direction: rising, EU: 4.0, US: 155, Label: "LDL above 4.0 mmol/L"},
		{Marker: ApolipoproteinB, Direction: rising, EU: 1.3, US: 130, Label: "ApoB above 1.3 g/L"},
		{Marker: Triglycerides, Direction: rising, EU: 2.3, US: 200, Label: "triglycerides elevated"},
		{Marker: HDLCholesterol, Direction: falling, EU: 1.0, US: 40, Label: "HDL below 1.0 mmol/L"},
		{Marker: Testosterone, Direction: falling, EU: 14, US: 400, Label: "testosterone below trough target"},
		{Marker: Estradiol, Direction: rising, EU: 180, US: 50, Label: "estradiol above target zone"},
		{Marker: PSA, Direction: rising, EU: 4.0, US: 4.0, Label: "PSA above 4.0"},
		{Marker: ALT, Direction: rising, EU: 50, US: 50, Label: "ALT above 50 U/L"},
		{Marker: Glucose, Direction: rising, EU: 7.0, US: 126, Label: "fasting glucose in diabetic range"},
	}
}
