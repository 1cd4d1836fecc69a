package insightfinder

// Document is a named piece of text submitted for indexing.
type Document struct {
	Name    string
	Content string
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	Name    string
	Excerpt string
	Score   float64
}

// Status is a snapshot of the engine state.
type Status struct {
	Mode          string
	DocumentCount int
	Threshold     int
	ForceIndexed  bool
}
