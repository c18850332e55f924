// Package question holds the immutable pool of prompt templates a round draws from.
package question

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Placeholder marks where the subject's name is substituted.
const Placeholder = "{player}"

var ErrEmptyPool = errors.New("question pool is empty")

//go:embed questions.json
var defaultQuestions []byte

type Question struct {
	Text string `json:"text"`
}

// HasSubject reports whether the template refers to a player.
func (q Question) HasSubject() bool {
	return strings.Contains(q.Text, Placeholder)
}

// Render replaces every placeholder with name.
func (q Question) Render(name string) string {
	return strings.ReplaceAll(q.Text, Placeholder, name)
}

// Source is the slice of a random generator the pool needs.
type Source interface {
	Intn(n int) int
}

// Pool is safe for concurrent use; it is never mutated after construction.
type Pool struct {
	questions []Question
}

// New validates questions and returns a pool holding a copy of them.
func New(questions []Question) (*Pool, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyPool
	}

	qs := make([]Question, len(questions))
	for i, q := range questions {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			return nil, fmt.Errorf("question %d: empty text", i)
		}
		qs[i] = q
	}
	return &Pool{questions: qs}, nil
}

func Parse(data []byte) (*Pool, error) {
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parsing questions: %w", err)
	}
	return New(questions)
}

// Load reads a JSON array of {"text": ...} records from path.
func Load(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the pool compiled into the binary.
func Default() (*Pool, error) {
	return Parse(defaultQuestions)
}

func (p *Pool) Len() int {
	return len(p.questions)
}

// Pick selects a question uniformly at random.
func (p *Pool) Pick(src Source) Question {
	return p.questions[src.Intn(len(p.questions))]
}
