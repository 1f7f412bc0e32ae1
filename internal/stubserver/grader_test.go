package stubserver

import (
	"testing"

	"github.com/mjansen/bijleslab/internal/tutor"
)

func intPtr(i int) *int { return &i }

func TestGradeMCQ(t *testing.T) {
	t.Parallel()

	ex := &tutor.Exercise{
		ID:   "ex_mcq",
		Type: "mcq",
		Content: tutor.Content{
			Question: "Pick the present perfect.",
			Options:  []string{"I walk", "I have walked", "I walked"},
		},
		AnswerKey: &tutor.AnswerKey{CorrectIndex: intPtr(1)},
	}

	tests := []struct {
		answer string
		want   string
	}{
		{"B", tutor.ResultCorrect},
		{"2", tutor.ResultCorrect},
		{"i have walked", tutor.ResultCorrect},
		{"A", tutor.ResultIncorrect},
		{"nonsense", tutor.ResultIncorrect},
	}
	for _, tt := range tests {
		res := grade(ex, tt.answer)
		if res.Result != tt.want {
			t.Errorf("grade(%q) = %s, want %s", tt.answer, res.Result, tt.want)
		}
		if res.Expected != "I have walked" {
			t.Errorf("grade(%q): expected answer not surfaced: %q", tt.answer, res.Expected)
		}
	}
}

func TestGradeGapFillNormalizes(t *testing.T) {
	t.Parallel()

	ex := &tutor.Exercise{
		ID:        "ex_gap",
		Type:      "gapfill",
		Content:   tutor.Content{Sentence: "She ____ (live) here since 2019."},
		AnswerKey: &tutor.AnswerKey{CorrectAnswer: "has lived"},
	}

	if res := grade(ex, "  HAS   Lived "); res.Result != tutor.ResultCorrect {
		t.Errorf("Normalized match should be correct, got %s", res.Result)
	}
	if res := grade(ex, "have lived"); res.Result != tutor.ResultIncorrect {
		t.Errorf("Wrong form should be incorrect, got %s", res.Result)
	}
}

func TestGradeWritingWordCount(t *testing.T) {
	t.Parallel()

	ex := &tutor.Exercise{
		ID:   "ex_wr",
		Type: "writing",
		Content: tutor.Content{
			Prompt:    "Write about your summer.",
			WordLimit: &tutor.WordLimit{Min: 5, Max: 20},
			Rubric:    map[string]string{"grammar": "verb forms"},
		},
	}

	short := grade(ex, "Too short.")
	if short.Details.WordCount != 2 {
		t.Errorf("Word count = %d, want 2", short.Details.WordCount)
	}
	if short.Result == tutor.ResultCorrect {
		t.Error("A text far under the minimum should not be correct")
	}
	if len(short.Details.ErrorTypes) == 0 || short.Details.ErrorTypes[0] != "too_short" {
		t.Errorf("Expected too_short error type, got %v", short.Details.ErrorTypes)
	}

	ok := grade(ex, "This summer I have visited my grandparents and we have been swimming.")
	if ok.Result != tutor.ResultCorrect {
		t.Errorf("In-range text should be correct, got %s (score %.2f)", ok.Result, ok.Score)
	}
}
