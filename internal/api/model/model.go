package model

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leadforge/leadforge/internal/contact"
)

// ImportJob is one CSV upload's persisted lifecycle record.
type ImportJob struct {
	ID                string           `db:"id"`
	UploaderID        int64            `db:"uploader_id"`
	FileName          string           `db:"file_name"`
	StorageKey        string           `db:"storage_key"`
	Status            string           `db:"status"`
	TotalRows         int              `db:"total_rows"`
	SuccessfulImports int              `db:"successful_imports"`
	FailedImports     int              `db:"failed_imports"`
	ValidationErrors  ValidationErrors `db:"validation_errors"`
	ErrorReport       sql.NullString   `db:"error_report"`
	ProcessingTimeMs  sql.NullInt64    `db:"processing_time_ms"`
	CreatedAt         time.Time        `db:"created_at"`
	StartedAt         sql.NullTime     `db:"started_at"`
	CompletedAt       sql.NullTime     `db:"completed_at"`
}

// ValidationErrors is the jsonb-encoded list of per-row failures.
type ValidationErrors []contact.ValidationError

// Value implements driver.Valuer for the jsonb column
func (v ValidationErrors) Value() (driver.Value, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner for the jsonb column
func (v *ValidationErrors) Scan(src interface{}) error {
	if src == nil {
		*v = nil
		return nil
	}

	var data []byte
	switch s := src.(type) {
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return fmt.Errorf("cannot scan %T into ValidationErrors", src)
	}

	return json.Unmarshal(data, v)
}
