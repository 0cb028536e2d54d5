package question

// Hash field names of a stored question.
const (
	TitleField  = "title"
	VectorField = "title_vector"
)

// Layout derives key and index names for the questions index.
// Documents live at <prefix><name>:<id>; the index is <prefix><name>:idx.
type Layout struct {
	KeyPrefix string
	Name      string
}

// DocPrefix returns the key prefix every question hash shares.
func (l Layout) DocPrefix() string {
	return l.KeyPrefix + l.Name + ":"
}

// IndexName returns the FT index name.
func (l Layout) IndexName() string {
	return l.KeyPrefix + l.Name + ":idx"
}

// Key returns the storage key of one question.
func (l Layout) Key(id string) string {
	return l.DocPrefix() + id
}
