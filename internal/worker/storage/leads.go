package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/leadforge/leadforge/internal/contact"
)

// LeadStore writes validated contact rows into the lead table
type LeadStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewLeadStore creates a new LeadStore instance
func NewLeadStore(db *sqlx.DB, logger *slog.Logger) *LeadStore {
	return &LeadStore{
		db:     db,
		logger: logger,
	}
}

// BulkInsert inserts the batch in one statement, silently skipping rows whose
// phone already exists. Pre-existing leads are left unmodified; the returned
// count reflects only newly inserted rows. Duplicates inside the batch itself
// are also collapsed by the conflict clause.
func (s *LeadStore) BulkInsert(ctx context.Context, rows []contact.ContactRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*4)
	for i, row := range rows {
		base := i * 4
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, NOW())",
			base+1, base+2, base+3, base+4))
		args = append(args, row.Name, row.Phone, nullable(row.Email), nullable(row.Source))
	}

	query := `
		INSERT INTO leads (name, phone, email, source, created_at)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (phone) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert leads: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info("Leads bulk inserted",
		slog.Int("batch_size", len(rows)),
		slog.Int64("inserted", inserted),
	)

	return inserted, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
