package tutor

import (
	"encoding/json"
	"testing"
)

func TestExerciseDecodeNestedContent(t *testing.T) {
	t.Parallel()

	raw := `{
		"exercise_id": "ex_ab12cd34",
		"type": "mcq",
		"topic": "Present Perfect",
		"difficulty": "medium",
		"content": {
			"question": "You ___ go there.",
			"options": ["must", "should", "can", "might"]
		},
		"answer_key": {"correct_index": 1, "correct_option": "should"},
		"metadata": {"theme": "school"}
	}`

	var ex Exercise
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if ex.Kind() != KindMCQ {
		t.Errorf("Expected kind mcq, got %s", ex.Kind())
	}
	if ex.PromptText() != "You ___ go there." {
		t.Errorf("Unexpected prompt text: %q", ex.PromptText())
	}
	if len(ex.Content.Options) != 4 {
		t.Fatalf("Expected 4 options, got %d", len(ex.Content.Options))
	}
	correct, ok := ex.CorrectOption()
	if !ok || correct != "should" {
		t.Errorf("Expected correct option 'should', got %q (ok=%v)", correct, ok)
	}
	if ex.Metadata.Theme != "school" {
		t.Errorf("Expected theme school, got %q", ex.Metadata.Theme)
	}
}

func TestExerciseDecodeFlatShape(t *testing.T) {
	t.Parallel()

	raw := `{
		"exercise_id": "ex_ff00aa11",
		"type": "gap_fill",
		"sentence": "She ___ (work) here.",
		"correct_answer": "works",
		"explanation": "Present simple for habits."
	}`

	var ex Exercise
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if ex.Kind() != KindGapFill {
		t.Errorf("Expected kind gapfill, got %s", ex.Kind())
	}
	if ex.Content.Sentence != "She ___ (work) here." {
		t.Errorf("Flat sentence not lifted into content: %q", ex.Content.Sentence)
	}
	correct, ok := ex.CorrectOption()
	if !ok || correct != "works" {
		t.Errorf("Expected correct answer 'works', got %q (ok=%v)", correct, ok)
	}
	if ex.Metadata.Explanation != "Present simple for habits." {
		t.Errorf("Flat explanation not lifted: %q", ex.Metadata.Explanation)
	}
}

func TestWritingExerciseWithoutAnswerKey(t *testing.T) {
	t.Parallel()

	raw := `{
		"exercise_id": "ex_wr001122",
		"type": "writing",
		"content": {
			"prompt": "Describe your weekend",
			"rubric": {"structure": "Use paragraphs.", "language": "Mind your tenses."},
			"word_limit": {"min": 50, "max": 150}
		},
		"answer_key": null
	}`

	var ex Exercise
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if ex.Kind() != KindWriting {
		t.Errorf("Expected kind writing, got %s", ex.Kind())
	}
	// Absence of options/answer key is expected for writing, not an error.
	if _, ok := ex.CorrectOption(); ok {
		t.Error("Writing exercise should not resolve a correct option")
	}
	if ex.Content.WordLimit == nil || ex.Content.WordLimit.Min != 50 || ex.Content.WordLimit.Max != 150 {
		t.Errorf("Unexpected word limit: %+v", ex.Content.WordLimit)
	}
	if len(ex.Raw) == 0 {
		t.Error("Expected raw payload to be retained")
	}
}

func TestKindNormalizesSpellingVariants(t *testing.T) {
	t.Parallel()

	cases := map[string]Kind{
		"mcq":             KindMCQ,
		"multiple_choice": KindMCQ,
		"gapfill":         KindGapFill,
		"gap_fill":        KindGapFill,
		"reading":         KindReading,
		"writing":         KindWriting,
		"podcast":         KindUnknown,
	}
	for typ, want := range cases {
		ex := Exercise{Type: typ}
		if got := ex.Kind(); got != want {
			t.Errorf("Kind(%q) = %s, want %s", typ, got, want)
		}
	}
}
