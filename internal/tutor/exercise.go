package tutor

import (
	"encoding/json"
)

// Kind is the normalized exercise shape. The backend emits both short and
// long spellings for the same shape ("mcq"/"multiple_choice",
// "gapfill"/"gap_fill"); Kind folds them together.
type Kind string

const (
	KindMCQ     Kind = "mcq"
	KindGapFill Kind = "gapfill"
	KindReading Kind = "reading"
	KindWriting Kind = "writing"
	KindUnknown Kind = "unknown"
)

// WordLimit is the advisory word range for writing tasks. It is not enforced
// client-side.
type WordLimit struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Content holds the type-specific exercise payload. Only the fields relevant
// to the exercise's kind are populated.
type Content struct {
	Question  string            `json:"question,omitempty"`
	Sentence  string            `json:"sentence,omitempty"`
	Prompt    string            `json:"prompt,omitempty"`
	Passage   string            `json:"passage,omitempty"`
	Options   []string          `json:"options,omitempty"`
	Rubric    map[string]string `json:"rubric,omitempty"`
	WordLimit *WordLimit        `json:"word_limit,omitempty"`
}

// AnswerKey carries the expected answer when the backend includes one.
// Writing exercises legitimately have none.
type AnswerKey struct {
	CorrectIndex  *int   `json:"correct_index,omitempty"`
	CorrectOption string `json:"correct_option,omitempty"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// Metadata is free-form exercise annotation from the generator.
type Metadata struct {
	Theme       string `json:"theme,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// Exercise is a single graded learning task.
type Exercise struct {
	ID           string     `json:"exercise_id"`
	Type         string     `json:"type"`
	Topic        string     `json:"topic,omitempty"`
	Difficulty   string     `json:"difficulty,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Content      Content    `json:"content"`
	AnswerKey    *AnswerKey `json:"answer_key,omitempty"`
	Metadata     Metadata   `json:"metadata,omitempty"`

	// Raw keeps the undecoded payload for the debug dump shown when an
	// exercise arrives without usable content.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts both the nested wire shape ({"content":{...}}) and
// the flat legacy shape with question/options/etc. at the top level.
func (e *Exercise) UnmarshalJSON(data []byte) error {
	type nested Exercise
	var n nested
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}

	var flat struct {
		Question      string            `json:"question"`
		Sentence      string            `json:"sentence"`
		Prompt        string            `json:"prompt"`
		Passage       string            `json:"passage"`
		Options       []string          `json:"options"`
		Rubric        map[string]string `json:"rubric"`
		WordLimit     *WordLimit        `json:"word_limit"`
		CorrectAnswer string            `json:"correct_answer"`
		Explanation   string            `json:"explanation"`
	}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	*e = Exercise(n)
	e.Raw = append(e.Raw[:0], data...)

	if e.Content.Question == "" {
		e.Content.Question = flat.Question
	}
	if e.Content.Sentence == "" {
		e.Content.Sentence = flat.Sentence
	}
	if e.Content.Prompt == "" {
		e.Content.Prompt = flat.Prompt
	}
	if e.Content.Passage == "" {
		e.Content.Passage = flat.Passage
	}
	if len(e.Content.Options) == 0 {
		e.Content.Options = flat.Options
	}
	if e.Content.Rubric == nil {
		e.Content.Rubric = flat.Rubric
	}
	if e.Content.WordLimit == nil {
		e.Content.WordLimit = flat.WordLimit
	}
	if flat.CorrectAnswer != "" && (e.AnswerKey == nil || e.AnswerKey.CorrectAnswer == "") {
		if e.AnswerKey == nil {
			e.AnswerKey = &AnswerKey{}
		}
		e.AnswerKey.CorrectAnswer = flat.CorrectAnswer
	}
	if e.Metadata.Explanation == "" {
		e.Metadata.Explanation = flat.Explanation
	}
	return nil
}

// Kind normalizes the exercise type, folding spelling variants.
func (e *Exercise) Kind() Kind {
	switch e.Type {
	case "mcq", "multiple_choice":
		return KindMCQ
	case "gapfill", "gap_fill":
		return KindGapFill
	case "reading":
		return KindReading
	case "writing":
		return KindWriting
	default:
		return KindUnknown
	}
}

// PromptText returns the primary text to show the learner, whichever field
// the exercise's kind carries it in.
func (e *Exercise) PromptText() string {
	for _, s := range []string{e.Content.Question, e.Content.Sentence, e.Content.Prompt, e.Content.Passage} {
		if s != "" {
			return s
		}
	}
	return ""
}

// CorrectOption resolves the answer key to an option string, following
// either correct_option, correct_index or correct_answer. The second return
// is false when no key is present (expected for writing).
func (e *Exercise) CorrectOption() (string, bool) {
	if e.AnswerKey == nil {
		return "", false
	}
	if e.AnswerKey.CorrectOption != "" {
		return e.AnswerKey.CorrectOption, true
	}
	if e.AnswerKey.CorrectIndex != nil {
		i := *e.AnswerKey.CorrectIndex
		if i >= 0 && i < len(e.Content.Options) {
			return e.Content.Options[i], true
		}
	}
	if e.AnswerKey.CorrectAnswer != "" {
		return e.AnswerKey.CorrectAnswer, true
	}
	return "", false
}
