package mode

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Semantic embeds the query and runs a KNN search over title vectors.
	Semantic Mode = "semantic"
	// Keyword runs a full-text match over titles.
	Keyword Mode = "keyword"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Semantic || m == Keyword
}
