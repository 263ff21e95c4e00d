package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/cv-builder/internal/cv"
)

// DefaultListLimit caps ListCVs when no limit is given.
const DefaultListLimit = 50

const cvColumns = `id, user_id, subdomain, title, template_type, template_id, main_color,
		        cv_data, display_settings, created_at, updated_at`

// -----------------------------------------------------------------------------
// CV Methods
// -----------------------------------------------------------------------------

// CreateCV stores a new CV owned by userID
func (db *DB) CreateCV(ctx context.Context, userID uuid.UUID, record cv.Record) (*CVRow, error) {
	enc, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO cvs (user_id, title, template_type, template_id, main_color, cv_data, display_settings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+cvColumns,
		userID, record.Title, record.TemplateType, record.TemplateID, record.MainColor,
		enc.cvData, enc.display,
	)
	c, err := scanCV(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create cv: %w", err)
	}
	return c, nil
}

// GetCV retrieves a CV by ID. Returns nil, nil when it does not exist.
func (db *DB) GetCV(ctx context.Context, id uuid.UUID) (*CVRow, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+cvColumns+` FROM cvs WHERE id = $1`, id)
	c, err := scanCV(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cv: %w", err)
	}
	return c, nil
}

// GetCVBySubdomain retrieves a published CV
func (db *DB) GetCVBySubdomain(ctx context.Context, subdomain string) (*CVRow, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, nil
	}
	row := db.pool.QueryRow(ctx, `SELECT `+cvColumns+` FROM cvs WHERE subdomain = $1`, subdomain)
	c, err := scanCV(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cv by subdomain: %w", err)
	}
	return c, nil
}

// ListCVs returns the user's CVs, most recently updated first
func (db *DB) ListCVs(ctx context.Context, userID uuid.UUID, limit int) ([]CVSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, title, template_id, subdomain, updated_at
		 FROM cvs WHERE user_id = $1
		 ORDER BY updated_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cvs: %w", err)
	}
	defer rows.Close()

	var cvs []CVSummary
	for rows.Next() {
		var s CVSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.TemplateID, &s.Subdomain, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cv: %w", err)
		}
		cvs = append(cvs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cvs: %w", err)
	}
	return cvs, nil
}

// UpdateCV replaces the stored record. Returns nil, nil when the CV does
// not exist.
func (db *DB) UpdateCV(ctx context.Context, id uuid.UUID, record cv.Record) (*CVRow, error) {
	enc, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}

	row := db.pool.QueryRow(ctx,
		`UPDATE cvs SET title = $2, template_type = $3, template_id = $4, main_color = $5,
		                cv_data = $6, display_settings = $7, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+cvColumns,
		id, record.Title, record.TemplateType, record.TemplateID, record.MainColor,
		enc.cvData, enc.display,
	)
	c, err := scanCV(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update cv: %w", err)
	}
	return c, nil
}

// DeleteCV removes a CV. Returns false when nothing was deleted.
func (db *DB) DeleteCV(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx, `DELETE FROM cvs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete cv: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// PublishCV assigns a public subdomain. Subdomains are stored lower-case.
// Returns ErrSubdomainTaken if another CV holds it.
func (db *DB) PublishCV(ctx context.Context, id uuid.UUID, subdomain string) (*CVRow, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, fmt.Errorf("subdomain is required")
	}

	row := db.pool.QueryRow(ctx,
		`UPDATE cvs SET subdomain = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+cvColumns,
		id, subdomain,
	)
	c, err := scanCV(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, ErrSubdomainTaken
		}
		return nil, fmt.Errorf("failed to publish cv: %w", err)
	}
	return c, nil
}

// UnpublishCV clears the subdomain
func (db *DB) UnpublishCV(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `UPDATE cvs SET subdomain = NULL, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to unpublish cv: %w", err)
	}
	return nil
}

func scanCV(row pgx.Row) (*CVRow, error) {
	var c CVRow
	var cvData, display []byte
	err := row.Scan(&c.ID, &c.UserID, &c.Subdomain, &c.Record.Title, &c.Record.TemplateType,
		&c.Record.TemplateID, &c.Record.MainColor, &cvData, &display, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeRecord(&c.Record, cvData, display); err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
