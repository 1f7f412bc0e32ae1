// Package exercise renders tutor exercises for an interactive client
// and tracks the answered/graded lifecycle of a single attempt.
package exercise

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mjansen/bijleslab/internal/tutor"
)

var ErrAlreadyAnswered = errors.New("exercise: already answered")

// Mark is the visual state of a single option after grading.
type Mark int

const (
	MarkNone Mark = iota
	MarkPositive
	MarkNegative
	MarkDimmed
)

// Option is one selectable choice with its display label (A, B, C...).
type Option struct {
	Label    string
	Text     string
	Mark     Mark
	Disabled bool
}

// View wraps an exercise for presentation. Choosing an answer and
// grading it are both one-way: once a result is shown the attempt is
// closed and further choices are rejected.
type View struct {
	ex     *tutor.Exercise
	chosen int
	result *tutor.CheckResult
	graded bool
}

func NewView(ex *tutor.Exercise) *View {
	return &View{ex: ex, chosen: -1}
}

func (v *View) Exercise() *tutor.Exercise { return v.ex }

// Malformed reports an exercise the client cannot sensibly render:
// multiple choice without options, or no prompt text at all. Writing
// exercises legitimately have no options and no answer key.
func (v *View) Malformed() bool {
	if v.ex == nil {
		return true
	}
	if v.ex.Kind() == tutor.KindMCQ && len(v.ex.Content.Options) == 0 {
		return true
	}
	return v.ex.PromptText() == ""
}

// MultiLine reports whether the answer input should be a free-form
// text area rather than a single line.
func (v *View) MultiLine() bool {
	return v.ex != nil && v.ex.Kind() == tutor.KindWriting
}

// Prompt returns the text the student responds to.
func (v *View) Prompt() string {
	if v.ex == nil {
		return ""
	}
	return v.ex.PromptText()
}

// Instructions returns the exercise instructions, if any.
func (v *View) Instructions() string {
	if v.ex == nil {
		return ""
	}
	return v.ex.Instructions
}

// WordLimitAdvisory formats the writing length hint, e.g.
// "50 – 150 woorden". Empty when the exercise carries no limit.
func (v *View) WordLimitAdvisory() string {
	if v.ex == nil || v.ex.Content.WordLimit == nil {
		return ""
	}
	wl := v.ex.Content.WordLimit
	if wl.Min == 0 && wl.Max == 0 {
		return ""
	}
	return fmt.Sprintf("%d – %d woorden", wl.Min, wl.Max)
}

// Rubric returns the grading criteria in stable order.
func (v *View) Rubric() []string {
	if v.ex == nil || len(v.ex.Content.Rubric) == 0 {
		return nil
	}
	keys := make([]string, 0, len(v.ex.Content.Rubric))
	for k := range v.ex.Content.Rubric {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s: %s", k, v.ex.Content.Rubric[k]))
	}
	return out
}

// Choose records the student's pick and returns the answer string to
// submit. The pick may be an option label ("B"), a 1-based number or
// the option text itself. Choosing after grading is rejected.
func (v *View) Choose(answer string) (string, error) {
	if v.graded {
		return "", ErrAlreadyAnswered
	}
	if v.ex == nil {
		return "", errors.New("exercise: nothing to answer")
	}
	opts := v.ex.Content.Options
	if len(opts) == 0 {
		// Free-form exercise: pass the answer through untouched.
		return answer, nil
	}
	idx := MatchOption(answer, opts)
	if idx < 0 {
		return "", fmt.Errorf("exercise: %q does not match any option", answer)
	}
	v.chosen = idx
	return opts[idx], nil
}

// Grade closes the attempt with the backend's verdict. A second call
// is rejected: the result view never transitions back.
func (v *View) Grade(res *tutor.CheckResult) error {
	if v.graded {
		return ErrAlreadyAnswered
	}
	v.result = res
	v.graded = true
	return nil
}

func (v *View) Graded() bool { return v.graded }

func (v *View) Result() *tutor.CheckResult { return v.result }

// Options returns the choices with their post-grading marks: the
// correct option positive, a wrong pick negative, the rest dimmed.
// Before grading every option is unmarked and enabled.
func (v *View) Options() []Option {
	if v.ex == nil {
		return nil
	}
	opts := v.ex.Content.Options
	out := make([]Option, len(opts))
	correct := v.correctIndex()
	for i, text := range opts {
		o := Option{Label: optionLabel(i), Text: text}
		if v.graded {
			o.Disabled = true
			switch {
			case i == correct:
				o.Mark = MarkPositive
			case i == v.chosen:
				o.Mark = MarkNegative
			default:
				o.Mark = MarkDimmed
			}
		}
		out[i] = o
	}
	return out
}

// DebugDump returns the raw exercise payload, indented, for showing
// malformed exercises to the user instead of a blank panel.
func (v *View) DebugDump() string {
	if v.ex == nil || len(v.ex.Raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, v.ex.Raw, "", "  "); err != nil {
		return string(v.ex.Raw)
	}
	return buf.String()
}

// correctIndex resolves the right option index from the grading result
// first, then from the exercise's own answer key. Returns -1 when
// neither identifies an option.
func (v *View) correctIndex() int {
	opts := v.ex.Content.Options
	if v.result != nil && v.result.Expected != "" {
		if idx := MatchOption(v.result.Expected, opts); idx >= 0 {
			return idx
		}
	}
	key := v.ex.AnswerKey
	if key == nil {
		return -1
	}
	if key.CorrectIndex != nil && *key.CorrectIndex >= 0 && *key.CorrectIndex < len(opts) {
		return *key.CorrectIndex
	}
	if key.CorrectOption != "" {
		if idx := MatchOption(key.CorrectOption, opts); idx >= 0 {
			return idx
		}
	}
	if key.CorrectAnswer != "" {
		if idx := MatchOption(key.CorrectAnswer, opts); idx >= 0 {
			return idx
		}
	}
	return -1
}

// MatchOption maps a student answer onto an option index. It accepts
// a single letter ("b"), a 1-based number ("2") or the option text,
// all case-insensitively. Returns -1 when nothing matches.
func MatchOption(answer string, options []string) int {
	answer = strings.TrimSpace(answer)
	if answer == "" || len(options) == 0 {
		return -1
	}
	if len(answer) == 1 {
		c := answer[0]
		if c >= 'A' && c <= 'Z' {
			if idx := int(c - 'A'); idx < len(options) {
				return idx
			}
		}
		if c >= 'a' && c <= 'z' {
			if idx := int(c - 'a'); idx < len(options) {
				return idx
			}
		}
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1
		}
		return -1
	}
	norm := normalize(answer)
	for i, opt := range options {
		if normalize(opt) == norm {
			return i
		}
	}
	return -1
}

func optionLabel(i int) string {
	return string(rune('A' + i))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
