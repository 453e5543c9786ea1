package contact

// ContactRow is a validated, normalized contact parsed from one CSV data row.
// Phone is the dedup key used by the bulk writer.
type ContactRow struct {
	Name   string `validate:"required,min=2,max=255"`
	Phone  string `validate:"required,phone"`
	Email  string `validate:"omitempty,email"`
	Source string `validate:"omitempty,max=100"`
}

// ValidationError describes why one CSV data row was rejected. RowNumber is
// 1-based and excludes the header row.
type ValidationError struct {
	RowNumber    int               `json:"row_number"`
	RawRecord    map[string]string `json:"raw_record"`
	ErrorMessage string            `json:"error_message"`
}
