package narrative

// Template keys
const (
	keyHeadlineDoseStart       = "headline.dose.start"
	keyHeadlineDoseAdjust      = "headline.dose.adjustment"
	keyHeadlineFrequencyStart  = "headline.frequency.start"
	keyHeadlineFrequencyAdjust = "headline.frequency.adjustment"
	keyHeadlineCompound        = "headline.compound"
	keyHeadlineMixed           = "headline.mixed"
	keyHeadlineWaiting         = "headline.suffix.waiting"

	keyPartDose      = "part.dose"
	keyPartFrequency = "part.frequency"
	keyPartCompound  = "part.compound"

	keyObserved             = "row.observed"
	keyObservedInsufficient = "row.observed.insufficient"
	keyEffect               = "row.effect"
	keyReliability          = "row.reliability"
	keyRetest               = "row.retest"
	keyFallback             = "row.fallback"

	keyPredictionClear        = "prediction.clear"
	keyPredictionUnclear      = "prediction.unclear"
	keyPredictionInsufficient = "prediction.insufficient"
	keyPredictionPrior        = "prediction.prior"

	keyStabilitySteady      = "stability.steady"
	keyStabilityNotSteady   = "stability.not_steady"
	keyStabilityVolatile    = "stability.volatile"
	keyStabilityOutOfZone   = "stability.out_of_zone"
	keyStabilityHctRising   = "stability.hematocrit_rising"
	keyStabilityFewReports  = "stability.few_reports"
	keyStabilityNoProtocol  = "stability.no_protocol"
	keyInterpretationPrefix = "row.interpretation."
)

// Reason and warning keys used by dose-response predictions
const (
	ReasonFewSamples       = "reason.few_samples"
	ReasonFewLevels        = "reason.few_levels"
	ReasonNoCorrelation    = "reason.no_correlation"
	ReasonDirection        = "reason.direction_conflict"
	ReasonWeakCorrelation  = "reason.weak_correlation"
	ReasonSmallEffect      = "reason.small_effect"
	ReasonTheilSen         = "reason.theil_sen"
	ReasonPriorOnly        = "reason.prior_only"
	ReasonBlended          = "reason.blended"
	ReasonConsistent       = "reason.consistent"
	WarningSamplingMixed   = "warning.sampling_mixed"
	WarningUnitMismatch    = "warning.unit_mismatch"
	WarningOutliers        = "warning.outliers"
	WarningPriorRange      = "warning.prior_range"
	WarningPriorUnit       = "warning.prior_unit"
	WarningSuggestedNotFit = "warning.suggested_not_fit"
)

var templates = map[string]map[string]string{
	"en": {
		keyHeadlineDoseStart:       "Protocol started at %s mg/week",
		keyHeadlineDoseAdjust:      "Dose changed from %s to %s mg/week",
		keyHeadlineFrequencyStart:  "Injections started at %s per week",
		keyHeadlineFrequencyAdjust: "Injection frequency changed from %s to %s per week",
		keyHeadlineCompound:        "Compounds changed to %s",
		keyHeadlineMixed:           "Protocol changed: %s",
		keyHeadlineWaiting:         " (waiting for follow-up labs)",

		keyPartDose:      "dose %s → %s mg/week",
		keyPartFrequency: "frequency %s → %s per week",
		keyPartCompound:  "compounds %s",

		keyObserved:             "%s went from %s to %s %s (%s).",
		keyObservedInsufficient: "%s has no measurement on one side of the change yet.",
		keyEffect:               "Effect %d/100, clinical weight %d, impact %d/100.",
		keyReliability:          "%s confidence (%d/100) from %d measurement(s) before and %d after.",
		keyRetest:               " Next useful test on or after %s.",
		keyFallback:             " Nearest report used because the window was empty.",

		keyInterpretationPrefix + "established_pattern.up":   "%s rose consistently after the change.",
		keyInterpretationPrefix + "established_pattern.down": "%s fell consistently after the change.",
		keyInterpretationPrefix + "established_pattern.flat": "%s stayed level after the change.",
		keyInterpretationPrefix + "building_signal.up":       "%s appears to rise after the change; more tests will confirm it.",
		keyInterpretationPrefix + "building_signal.down":     "%s appears to fall after the change; more tests will confirm it.",
		keyInterpretationPrefix + "building_signal.flat":     "%s looks unaffected so far.",
		keyInterpretationPrefix + "early_signal.up":          "Early readings suggest %s may be rising.",
		keyInterpretationPrefix + "early_signal.down":        "Early readings suggest %s may be falling.",
		keyInterpretationPrefix + "early_signal.flat":        "Early readings show no clear shift in %s.",
		keyInterpretationPrefix + "insufficient":             "Not enough data to interpret %s yet.",

		keyPredictionClear:        "At %s mg/week %s is expected around %s %s (now about %s).",
		keyPredictionUnclear:      "No clear dose relationship for %s yet: %s.",
		keyPredictionInsufficient: "Not enough dose-linked measurements of %s.",
		keyPredictionPrior:        "Projection for %s leans on published study data.",

		keyStabilitySteady:     "On the current protocol for %d days.",
		keyStabilityNotSteady:  "Only %d days on the current protocol; levels may still be settling.",
		keyStabilityVolatile:   "%s is fluctuating.",
		keyStabilityOutOfZone:  "%s is outside its target zone.",
		keyStabilityHctRising:  "Hematocrit is trending up.",
		keyStabilityFewReports: "Fewer than two reports on the current protocol.",
		keyStabilityNoProtocol: "No protocol information on the latest report.",

		ReasonFewSamples:       "fewer than 4 dose-linked measurements",
		ReasonFewLevels:        "fewer than 2 different doses",
		ReasonNoCorrelation:    "values do not vary with dose",
		ReasonDirection:        "values fall as the dose rises, which is not expected for this marker",
		ReasonWeakCorrelation:  "weak correlation with dose",
		ReasonSmallEffect:      "the effect over the observed doses is under 3%",
		ReasonTheilSen:         "robust fit used because the least-squares slope disagreed in sign",
		ReasonPriorOnly:        "no usable personal dose data; study slope anchored at the latest value",
		ReasonBlended:          "personal data blended with study data",
		ReasonConsistent:       "consistent dose relationship",
		WarningSamplingMixed:   "Trough and peak samples are mixed; estimates carry extra timing noise.",
		WarningUnitMismatch:    "%d measurement(s) in another unit were left out.",
		WarningOutliers:        "%d outlier(s) were left out.",
		WarningPriorRange:      "The suggested dose is outside the range the study covered.",
		WarningPriorUnit:       "The study slope could not be converted to this unit.",
		WarningSuggestedNotFit: "The relationship is not clear, so the suggested dose shows no change.",
	},
	"nl": {
		keyHeadlineDoseStart:       "Protocol gestart op %s mg/week",
		keyHeadlineDoseAdjust:      "Dosis gewijzigd van %s naar %s mg/week",
		keyHeadlineFrequencyStart:  "Injecties gestart met %s per week",
		keyHeadlineFrequencyAdjust: "Injectiefrequentie gewijzigd van %s naar %s per week",
		keyHeadlineCompound:        "Middelen gewijzigd naar %s",
		keyHeadlineMixed:           "Protocol gewijzigd: %s",
		keyHeadlineWaiting:         " (wacht op vervolgbloedonderzoek)",

		keyPartDose:      "dosis %s → %s mg/week",
		keyPartFrequency: "frequentie %s → %s per week",
		keyPartCompound:  "middelen %s",

		keyObserved:             "%s ging van %s naar %s %s (%s).",
		keyObservedInsufficient: "%s heeft nog geen meting aan één kant van de wijziging.",
		keyEffect:               "Effect %d/100, klinisch gewicht %d, impact %d/100.",
		keyReliability:          "Betrouwbaarheid %s (%d/100) op basis van %d meting(en) ervoor en %d erna.",
		keyRetest:               " Volgende zinvolle test op of na %s.",
		keyFallback:             " Dichtstbijzijnde rapport gebruikt omdat het venster leeg was.",

		keyInterpretationPrefix + "established_pattern.up":   "%s steeg consequent na de wijziging.",
		keyInterpretationPrefix + "established_pattern.down": "%s daalde consequent na de wijziging.",
		keyInterpretationPrefix + "established_pattern.flat": "%s bleef gelijk na de wijziging.",
		keyInterpretationPrefix + "building_signal.up":       "%s lijkt te stijgen na de wijziging; meer tests bevestigen dit.",
		keyInterpretationPrefix + "building_signal.down":     "%s lijkt te dalen na de wijziging; meer tests bevestigen dit.",
		keyInterpretationPrefix + "building_signal.flat":     "%s lijkt tot nu toe onveranderd.",
		keyInterpretationPrefix + "early_signal.up":          "Eerste metingen wijzen op een mogelijke stijging van %s.",
		keyInterpretationPrefix + "early_signal.down":        "Eerste metingen wijzen op een mogelijke daling van %s.",
		keyInterpretationPrefix + "early_signal.flat":        "Eerste metingen tonen geen duidelijke verschuiving in %s.",
		keyInterpretationPrefix + "insufficient":             "Nog onvoldoende gegevens om %s te beoordelen.",

		keyPredictionClear:        "Bij %s mg/week wordt %s rond %s %s verwacht (nu ongeveer %s).",
		keyPredictionUnclear:      "Nog geen duidelijke dosisrelatie voor %s: %s.",
		keyPredictionInsufficient: "Onvoldoende dosisgekoppelde metingen van %s.",
		keyPredictionPrior:        "Projectie voor %s steunt op gepubliceerde studiegegevens.",

		keyStabilitySteady:     "%d dagen op het huidige protocol.",
		keyStabilityNotSteady:  "Pas %d dagen op het huidige protocol; waarden kunnen nog verschuiven.",
		keyStabilityVolatile:   "%s schommelt.",
		keyStabilityOutOfZone:  "%s valt buiten de doelzone.",
		keyStabilityHctRising:  "Hematocriet loopt op.",
		keyStabilityFewReports: "Minder dan twee rapporten op het huidige protocol.",
		keyStabilityNoProtocol: "Geen protocolinformatie op het laatste rapport.",

		ReasonFewSamples:       "minder dan 4 dosisgekoppelde metingen",
		ReasonFewLevels:        "minder dan 2 verschillende doseringen",
		ReasonNoCorrelation:    "waarden variëren niet met de dosis",
		ReasonDirection:        "waarden dalen bij een hogere dosis, wat voor deze marker niet verwacht wordt",
		ReasonWeakCorrelation:  "zwakke correlatie met de dosis",
		ReasonSmallEffect:      "het effect over de gemeten doseringen is minder dan 3%",
		ReasonTheilSen:         "robuuste fit gebruikt omdat de kleinste-kwadratenhelling een ander teken had",
		ReasonPriorOnly:        "geen bruikbare persoonlijke dosisdata; studiehelling verankerd aan de laatste waarde",
		ReasonBlended:          "persoonlijke data gecombineerd met studiedata",
		ReasonConsistent:       "consistente dosisrelatie",
		WarningSamplingMixed:   "Dal- en piekmetingen zijn gemengd; schattingen bevatten extra timingruis.",
		WarningUnitMismatch:    "%d meting(en) in een andere eenheid zijn weggelaten.",
		WarningOutliers:        "%d uitschieter(s) zijn weggelaten.",
		WarningPriorRange:      "De voorgestelde dosis valt buiten het bereik van de studie.",
		WarningPriorUnit:       "De studiehelling kon niet naar deze eenheid worden omgezet.",
		WarningSuggestedNotFit: "De relatie is niet duidelijk, dus de voorgestelde dosis toont geen verandering.",
	},
}
