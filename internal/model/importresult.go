package model

// RowError reports a failure for a single row of a bulk import.
// Row is 1-based and counts data rows, not the header.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult is the synchronous outcome of one bulk import call.
type ImportResult struct {
	Filename     string     `json:"filename,omitempty"`
	TotalRows    int        `json:"total_rows"`
	NewCount     int        `json:"new_count"`
	UpdatedCount int        `json:"updated_count"`
	SkippedCount int        `json:"skipped_count"`
	Errors       []RowError `json:"errors,omitempty"`
	Success      bool       `json:"success"`
}
