package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/questsearch/internal/domain"
	"github.com/kailas-cloud/questsearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in bytes.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 100
)

// Request is a validated search query.
type Request struct {
	query      string
	searchMode mode.Mode
	limit      int
}

// New validates and normalizes search parameters.
// Surrounding whitespace is trimmed; a blank query is valid and yields no hits.
// Limit defaults to DefaultLimit and is clamped to MaxLimit.
func New(query string, m mode.Mode, limit int) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid search mode %q", domain.ErrInvalidQuery, m)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Request{query: strings.TrimSpace(query), searchMode: m, limit: limit}, nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Limit returns the maximum number of hits.
func (r *Request) Limit() int { return r.limit }

// IsBlank reports whether there is nothing to search for.
func (r *Request) IsBlank() bool { return r.query == "" }
