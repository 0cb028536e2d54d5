package question

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/questsearch/internal/domain"
)

// MaxIDLength bounds the identifier so the storage key stays reasonable.
const MaxIDLength = 256

// Question is an ingested Q&A title (immutable value object).
// It is created at ingestion time and never mutated afterwards.
type Question struct {
	id     string
	title  string
	vector []float32
}

// New validates and creates a Question without a vector.
// ID: non-empty, no whitespace or braces, at most MaxIDLength bytes. Title: non-blank.
func New(id, title string) (Question, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Question{}, fmt.Errorf("%w: id is required", domain.ErrInvalidQuestion)
	}
	if len(id) > MaxIDLength {
		return Question{}, fmt.Errorf("%w: id too long (max %d)", domain.ErrInvalidQuestion, MaxIDLength)
	}
	if strings.ContainsAny(id, " \t\r\n{}") {
		return Question{}, fmt.Errorf("%w: id %q contains whitespace or braces", domain.ErrInvalidQuestion, id)
	}
	if strings.TrimSpace(title) == "" {
		return Question{}, fmt.Errorf("%w: title is required", domain.ErrInvalidQuestion)
	}
	return Question{id: id, title: title}, nil
}

// ID returns the question identifier.
func (q *Question) ID() string { return q.id }

// Title returns the question title.
func (q *Question) Title() string { return q.title }

// Vector returns the title embedding.
func (q *Question) Vector() []float32 { return q.vector }

// WithVector returns a copy carrying v. The length of v must equal dim.
func (q *Question) WithVector(v []float32, dim int) (Question, error) {
	if len(v) != dim {
		return Question{}, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(v), dim)
	}
	return Question{id: q.id, title: q.title, vector: v}, nil
}
