package search

// RequestRecord is the data we index for a request.
type RequestRecord struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	City           string `json:"city"`
	Description    string `json:"description"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
	Status         string `json:"status"`
}

// Query describes a search request.
type Query struct {
	Text           string
	Specialization string // empty = all specializations
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []RequestRecord `json:"results"`
	Total   int             `json:"total"`
	Query   string          `json:"query"`
}

// Searcher can execute a request search.
type Searcher interface {
	Search(q Query) ([]RequestRecord, int, error)
	Healthy() bool
}
