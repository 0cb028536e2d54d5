package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for full-text search over a single TEXT field.
// MatchAny ORs the query terms (any term may match); otherwise all terms must match.
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	MatchAny     bool
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is cosine similarity for KNN hits and the engine's text score for text hits.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
