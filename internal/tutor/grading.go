package tutor

// Grading results as produced by the answer checker.
const (
	ResultCorrect   = "correct"
	ResultAlmost    = "almost"
	ResultIncorrect = "incorrect"
)

// CheckDetails carries the checker's diagnostic breakdown.
type CheckDetails struct {
	Skill          string             `json:"skill,omitempty"`
	ErrorTypes     []string           `json:"error_types,omitempty"`
	Comments       string             `json:"comments,omitempty"`
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
	WordCount      int                `json:"word_count,omitempty"`
	WordLimit      *WordLimit         `json:"word_limit,omitempty"`
}

// CheckResult is the objective grading verdict for one submitted answer.
type CheckResult struct {
	ExerciseID        string       `json:"exercise_id"`
	Result            string       `json:"result"`
	Score             float64      `json:"score"`
	Expected          string       `json:"expected,omitempty"`
	StudentAnswer     string       `json:"student_answer,omitempty"`
	StudentNormalized string       `json:"student_normalized,omitempty"`
	Details           CheckDetails `json:"details"`
}

// Feedback is the persona-voiced didactic feedback that accompanies a
// grading verdict.
type Feedback struct {
	FeedbackText string `json:"feedback_text"`
	TutorName    string `json:"tutor_name,omitempty"`
}

// AnswerOutcome is the full response to a submitted answer.
type AnswerOutcome struct {
	CheckResult    CheckResult `json:"check_result"`
	Feedback       Feedback    `json:"feedback"`
	SummaryMessage string      `json:"summary_message"`
	State          State       `json:"state"`
}
