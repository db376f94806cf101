package catalog

// ─── BUILT-IN CATALOGS ────────────────────────────────────────────────────────
//
// Two small catalogs live in code. The curated list is what the survey form
// was first built against; the fallback list keeps scoring alive when the
// question sheet is missing. Neither is authoritative; the auditor exists to
// show how far they drift from the sheet.

const (
	encRating = "1\n2\n3\n4\n5"
	encYesNo  = "Yes / نعم (1)\nNo / لا (0)"
	encSpeed  = "Within 10 minutes (2)\n10 to 20 minutes (1)\nMore than 20 minutes (0)"
)

// CuratedDefinitions returns the hand-maintained bilingual list.
func CuratedDefinitions() []QuestionDefinition {
	return []QuestionDefinition{
		builtin("Q1", "Professionalism of Staff", "Greeting professionalism", "التحية والاحترافية", encRating),
		builtin("Q2", "Speed of Service", "Wait time satisfaction", "الرضا عن وقت الانتظار", encRating),
		builtin("Q3", "Ease of use", "Resolution effectiveness", "فعالية الحل", encRating),
		builtin("Q4", "Premises Interior", "Facility cleanliness", "نظافة المرفق", encRating),
		builtin("Q5", "Service Information Quality", "Overall experience", "التجربة بشكل عام", encRating),
	}
}

// FallbackDefinitions returns the built-in catalog served when the tabular
// source is unavailable.
func FallbackDefinitions() []QuestionDefinition {
	return []QuestionDefinition{
		builtin("Q0", "Center Access", "Was the service center easy to locate?", "هل كان من السهل العثور على مركز الخدمة؟", encYesNo),
		builtin("Q9", "Premises Interior", "Was the interior clean and well maintained?", "هل كان المكان الداخلي نظيفاً ومُعتنى به؟", encYesNo),
		builtin("Q34", "Professionalism of Staff", "Did the receptionist greet you?", "هل رحب بك موظف الاستقبال؟", encYesNo),
		builtin("Q66", "Speed of Service", "How long did you wait to be served?", "كم من الوقت انتظرت لتلقي الخدمة؟", encSpeed),
		builtin("Q67", "Ease of use", "Was the service process easy to follow?", "هل كانت إجراءات الخدمة سهلة الاتباع؟", encYesNo),
	}
}

func builtin(id, section, textPrimary, textSecondary, answers string) QuestionDefinition {
	enc := ParseAnswerEncoding(answers)
	return QuestionDefinition{
		ID:             id,
		Section:        section,
		TextPrimary:    textPrimary,
		TextSecondary:  textSecondary,
		AnswerEncoding: answers,
		MaxScore:       enc.MaxScore,
		AnswerType:     enc.Type,
		AnswerOptions:  enc.Options,
	}
}
