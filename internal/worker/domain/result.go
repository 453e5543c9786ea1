package domain

import "github.com/leadforge/leadforge/internal/contact"

// ImportResult carries the final counters written to a completed job.
// SuccessfulImports reflects rows actually inserted, so it can be lower than
// the number of valid rows when the dedup key already existed. FailedImports
// counts only validation failures; duplicate-suppressed rows appear nowhere.
type ImportResult struct {
	TotalRows         int
	SuccessfulImports int
	FailedImports     int
	ValidationErrors  []contact.ValidationError
	ProcessingTimeMs  int64
}
