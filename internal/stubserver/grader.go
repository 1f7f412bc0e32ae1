package stubserver

import (
	"fmt"
	"strings"

	"github.com/mjansen/bijleslab/internal/exercise"
	"github.com/mjansen/bijleslab/internal/tutor"
)

// grade checks a student answer against an exercise. The verdict shape
// matches what the real backend produces so the client cannot tell the
// difference.
func grade(ex *tutor.Exercise, answer string) *tutor.CheckResult {
	res := &tutor.CheckResult{
		ExerciseID:        ex.ID,
		StudentAnswer:     answer,
		StudentNormalized: normalizeText(answer),
		Details: tutor.CheckDetails{
			Skill: skillFor(ex),
		},
	}

	switch ex.Kind() {
	case tutor.KindMCQ, tutor.KindReading:
		gradeMCQ(ex, answer, res)
	case tutor.KindGapFill:
		gradeGapFill(ex, answer, res)
	case tutor.KindWriting:
		gradeWriting(ex, answer, res)
	default:
		res.Result = tutor.ResultIncorrect
		res.Details.Comments = "Onbekend oefeningstype."
	}
	return res
}

func gradeMCQ(ex *tutor.Exercise, answer string, res *tutor.CheckResult) {
	opts := ex.Content.Options
	correct := -1
	if ex.AnswerKey != nil && ex.AnswerKey.CorrectIndex != nil {
		correct = *ex.AnswerKey.CorrectIndex
	}
	if correct < 0 || correct >= len(opts) {
		res.Result = tutor.ResultIncorrect
		res.Details.Comments = "Geen antwoordsleutel beschikbaar."
		return
	}
	res.Expected = opts[correct]

	chosen := exercise.MatchOption(answer, opts)
	if chosen < 0 {
		res.Result = tutor.ResultIncorrect
		res.Details.ErrorTypes = []string{"unrecognized_option"}
		res.Details.Comments = "Je antwoord komt met geen van de opties overeen."
		return
	}
	if chosen == correct {
		res.Result = tutor.ResultCorrect
		res.Score = 1.0
		return
	}
	res.Result = tutor.ResultIncorrect
	res.Details.ErrorTypes = []string{"wrong_option"}
	if ex.Metadata.Explanation != "" {
		res.Details.Comments = ex.Metadata.Explanation
	}
}

func gradeGapFill(ex *tutor.Exercise, answer string, res *tutor.CheckResult) {
	expected := ""
	if ex.AnswerKey != nil {
		expected = ex.AnswerKey.CorrectAnswer
	}
	if expected == "" {
		res.Result = tutor.ResultIncorrect
		res.Details.Comments = "Geen antwoordsleutel beschikbaar."
		return
	}
	res.Expected = expected

	if normalizeText(answer) == normalizeText(expected) {
		res.Result = tutor.ResultCorrect
		res.Score = 1.0
		return
	}
	res.Result = tutor.ResultIncorrect
	res.Details.ErrorTypes = []string{"wrong_form"}
	if ex.Metadata.Explanation != "" {
		res.Details.Comments = ex.Metadata.Explanation
	}
}

func gradeWriting(ex *tutor.Exercise, answer string, res *tutor.CheckResult) {
	words := len(strings.Fields(answer))
	res.Details.WordCount = words
	res.Details.WordLimit = ex.Content.WordLimit
	res.Details.CriteriaScores = map[string]float64{}

	lengthScore := 1.0
	if wl := ex.Content.WordLimit; wl != nil {
		switch {
		case words < wl.Min:
			lengthScore = float64(words) / float64(wl.Min)
			res.Details.ErrorTypes = append(res.Details.ErrorTypes, "too_short")
			res.Details.Comments = fmt.Sprintf("Je tekst is te kort: %d van minimaal %d woorden.", words, wl.Min)
		case words > wl.Max:
			lengthScore = 0.7
			res.Details.ErrorTypes = append(res.Details.ErrorTypes, "too_long")
			res.Details.Comments = fmt.Sprintf("Je tekst is te lang: %d van maximaal %d woorden.", words, wl.Max)
		}
	}
	res.Details.CriteriaScores["length"] = lengthScore
	for criterion := range ex.Content.Rubric {
		// The stub cannot judge prose; give rubric criteria a passing
		// score so the feedback shape stays realistic.
		res.Details.CriteriaScores[criterion] = 0.8
	}

	total := 0.0
	for _, s := range res.Details.CriteriaScores {
		total += s
	}
	res.Score = total / float64(len(res.Details.CriteriaScores))

	switch {
	case res.Score >= 0.8:
		res.Result = tutor.ResultCorrect
	case res.Score >= 0.5:
		res.Result = tutor.ResultAlmost
	default:
		res.Result = tutor.ResultIncorrect
	}
}

func skillFor(ex *tutor.Exercise) string {
	switch {
	case ex.Kind() == tutor.KindWriting:
		return "writing"
	case ex.Kind() == tutor.KindReading, ex.Content.Passage != "":
		return "reading"
	default:
		return "grammar"
	}
}

// normalizeText lowercases and collapses whitespace so surface noise
// does not fail an otherwise right answer.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
