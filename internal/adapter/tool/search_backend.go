package tool

import "context"

// SearchBackend abstracts a web search engine.
type SearchBackend interface {
	// Search performs a web search and returns at most limit results in
	// provider order. limit is trusted; callers bound it.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	// Name returns the backend identifier (e.g. "querit").
	Name() string
}

// SearchResult is one normalized search hit. Position is the 1-based rank
// in the provider's response.
type SearchResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"display_link"`
	Position    int    `json:"position"`
}
