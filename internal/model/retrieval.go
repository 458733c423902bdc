package model

// Hit is one scored candidate returned by a semantic index search.
type Hit struct {
	Document string  `json:"document"`
	Section  int     `json:"section"`
	Page     int     `json:"page,omitempty"`
	Heading  string  `json:"section_heading,omitempty"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// Reference points a reader at the source of a retrieved passage.
type Reference struct {
	Document string `json:"document"`
	Page     int    `json:"page,omitempty"`
	Heading  string `json:"section_heading,omitempty"`
}

// RetrievalResult is the ranker output: assembled context text plus the
// ordered references whose text actually made it into the context.
type RetrievalResult struct {
	Context    string      `json:"context"`
	References []Reference `json:"references"`
}
