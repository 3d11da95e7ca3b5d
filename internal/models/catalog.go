package models

// QuizSummary is a catalog entry as listed by the content service
type QuizSummary struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"quiz_type"`
	Difficulty string `json:"difficulty"`
	CoverImage string `json:"cover_image,omitempty"`
}

// CatalogEntry is a summary enriched with navigation data
type CatalogEntry struct {
	QuizSummary
	TypeLabel string `json:"type_label"`
	Path      string `json:"path"`
}

// CatalogPage is one page of the filtered catalog
type CatalogPage struct {
	Entries    []CatalogEntry `json:"entries"`
	Types      []string       `json:"types"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// Route maps a quiz type to its play page
type Route struct {
	Type    QuizType `json:"quiz_type"`
	Pattern string   `json:"pattern"`
}

// Links are the exit links shown on terminal screens
type Links struct {
	Quizzes string `json:"quizzes"`
	Home    string `json:"home"`
}
