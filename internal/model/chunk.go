package model

// Chunk is one bounded span of a document's text. Section numbers are 1-based
// and monotonic within a document. Page 0 and an empty Heading mean "absent".
type Chunk struct {
	Document string `json:"document"`
	Section  int    `json:"section"`
	Text     string `json:"text"`
	Heading  string `json:"section_heading,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// WriteResult reports per-record insert accounting for one index write pass.
// Partial failure is expected; callers recover by re-running the upsert.
type WriteResult struct {
	Success int `json:"success_record_count"`
	Failed  int `json:"error_record_count"`
}

func (w WriteResult) Add(other WriteResult) WriteResult {
	return WriteResult{
		Success: w.Success + other.Success,
		Failed:  w.Failed + other.Failed,
	}
}
