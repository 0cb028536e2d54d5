package result

// Result is a single search hit.
type Result struct {
	id    string
	title string
	score float64
}

// New creates a search result.
func New(id, title string, score float64) Result {
	return Result{id: id, title: title, score: score}
}

// ID returns the question identifier.
func (r *Result) ID() string { return r.id }

// Title returns the question title.
func (r *Result) Title() string { return r.title }

// Score returns the engine relevance score: cosine similarity for semantic hits,
// the text score for keyword hits.
func (r *Result) Score() float64 { return r.score }

// Titles reshapes hits to their titles, preserving order.
func Titles(results []Result) []string {
	titles := make([]string, len(results))
	for i := range results {
		titles[i] = results[i].title
	}
	return titles
}
