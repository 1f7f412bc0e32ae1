// Package stubserver is a self-contained tutoring backend for local
// development and end-to-end tests. It speaks the same HTTP contract
// as the real backend but serves canned fixtures instead of calling a
// language model.
package stubserver

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// PersonaFixture describes one tutor voice.
type PersonaFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Greeting string `yaml:"greeting"`
}

// ExerciseFixture is a template the server instantiates with a fresh
// exercise id and the session's theme.
type ExerciseFixture struct {
	Type          string            `yaml:"type"`
	Skill         string            `yaml:"skill"`
	Topic         string            `yaml:"topic"`
	Difficulty    string            `yaml:"difficulty"`
	Instructions  string            `yaml:"instructions"`
	Question      string            `yaml:"question,omitempty"`
	Sentence      string            `yaml:"sentence,omitempty"`
	Prompt        string            `yaml:"prompt,omitempty"`
	Passage       string            `yaml:"passage,omitempty"`
	Options       []string          `yaml:"options,omitempty"`
	CorrectIndex  *int              `yaml:"correct_index,omitempty"`
	CorrectAnswer string            `yaml:"correct_answer,omitempty"`
	Rubric        map[string]string `yaml:"rubric,omitempty"`
	WordMin       int               `yaml:"word_min,omitempty"`
	WordMax       int               `yaml:"word_max,omitempty"`
	Explanation   string            `yaml:"explanation,omitempty"`
}

// Fixtures is everything the stub backend serves.
type Fixtures struct {
	Personas   []PersonaFixture             `yaml:"personas"`
	Replies    []string                     `yaml:"replies"`
	Exercises  map[string][]ExerciseFixture `yaml:"exercises"`
	Transcript string                       `yaml:"transcript"`
}

// LoadFixtures reads fixtures from a YAML file, falling back to the
// embedded defaults when path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	data := defaultFixtures
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixtures: %w", err)
		}
	}

	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixtures) validate() error {
	if len(f.Personas) == 0 {
		return fmt.Errorf("fixtures: at least one persona is required")
	}
	if len(f.Replies) == 0 {
		return fmt.Errorf("fixtures: at least one canned reply is required")
	}
	for skill, list := range f.Exercises {
		if len(list) == 0 {
			return fmt.Errorf("fixtures: skill %q has no exercises", skill)
		}
	}
	return nil
}

// Persona resolves a tutor by id or display name, case-insensitively.
// Falls back to the first persona when nothing matches.
func (f *Fixtures) Persona(nameOrID string) PersonaFixture {
	needle := strings.ToLower(strings.TrimSpace(nameOrID))
	for _, p := range f.Personas {
		if strings.ToLower(p.ID) == needle || strings.ToLower(p.Name) == needle {
			return p
		}
	}
	return f.Personas[0]
}

// ForSkill returns the exercise templates for a skill, or nil when the
// skill is unknown.
func (f *Fixtures) ForSkill(skill string) []ExerciseFixture {
	return f.Exercises[strings.ToLower(strings.TrimSpace(skill))]
}
