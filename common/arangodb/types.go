package arangodb

// Document is one piece of knowledge. Scope partitions documents between
// tenants and the shared collection.
type Document struct {
	Key     string
	Scope   string
	Title   string
	Content string
	Source  string
}

type ScoredDocument struct {
	Key     string  `json:"key"`
	Scope   string  `json:"scope"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}
