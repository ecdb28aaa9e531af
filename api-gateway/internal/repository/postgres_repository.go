package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"

	"github.com/fjod/cartlink/api-gateway/internal/domain"
)

const linkColumns = `link_id, status, cart_id, cart_version, qr_code_url, event_payload, last_error, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	sslMode := cred.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName,
		sslMode)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "links_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) CreateLink(ctx context.Context, linkID string) error {
	query := `INSERT INTO links (link_id, status, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query, linkID, domain.LinkStatusInitiated)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateLink
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (r *Repository) SetQRStored(ctx context.Context, linkID, qrCodeURL string) error {
	return r.update(ctx, `UPDATE links SET status = $2, qr_code_url = $3, updated_at = NOW() WHERE link_id = $1`,
		linkID, domain.LinkStatusQRStored, qrCodeURL)
}

func (r *Repository) SetCartCreated(ctx context.Context, linkID, cartID string, version int64) error {
	return r.update(ctx, `UPDATE links SET status = $2, cart_id = $3, cart_version = $4, updated_at = NOW() WHERE link_id = $1`,
		linkID, domain.LinkStatusCartCreated, cartID, version)
}

func (r *Repository) SetDiscountApplied(ctx context.Context, linkID string, version int64) error {
	return r.update(ctx, `UPDATE links SET status = $2, cart_version = $3, updated_at = NOW() WHERE link_id = $1`,
		linkID, domain.LinkStatusDiscountApplied, version)
}

func (r *Repository) SetEventPending(ctx context.Context, linkID string, payload []byte) error {
	return r.update(ctx, `UPDATE links SET status = $2, event_payload = $3, updated_at = NOW() WHERE link_id = $1`,
		linkID, domain.LinkStatusEventPending, payload)
}

func (r *Repository) MarkPublished(ctx context.Context, linkID string) error {
	return r.update(ctx, `UPDATE links SET status = $2, last_error = NULL, updated_at = NOW() WHERE link_id = $1`,
		linkID, domain.LinkStatusPublished)
}

// MarkFailed leaves pending events alone so the recovery poller can still publish them.
func (r *Repository) MarkFailed(ctx context.Context, linkID, cause string) error {
	return r.update(ctx, `UPDATE links SET status = $2, last_error = $3, updated_at = NOW()
	          WHERE link_id = $1 AND status NOT IN ('EVENT_PENDING', 'PUBLISHED')`,
		linkID, domain.LinkStatusFailed, cause)
}

func (r *Repository) RecordPublishError(ctx context.Context, linkID, cause string) error {
	return r.update(ctx, `UPDATE links SET last_error = $2, updated_at = NOW() WHERE link_id = $1`, linkID, cause)
}

func (r *Repository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	if n == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *Repository) GetLink(ctx context.Context, linkID string) (*LinkRecord, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE link_id = $1`

	rec, err := scanLink(r.db.QueryRowContext(ctx, query, linkID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query link: %w", err)
	}
	return rec, nil
}

// GetPendingEvents returns links whose event has waited longer than olderThan, oldest first.
func (r *Repository) GetPendingEvents(ctx context.Context, olderThan time.Duration, limit int) ([]*LinkRecord, error) {
	query := `SELECT ` + linkColumns + ` FROM links
	          WHERE status = $1 AND updated_at < NOW() - make_interval(secs => $2)
	          ORDER BY updated_at ASC
	          LIMIT $3`

	return r.list(ctx, query, domain.LinkStatusEventPending, olderThan.Seconds(), limit)
}

func (r *Repository) ListFailed(ctx context.Context, limit int) ([]*LinkRecord, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE status = $1 ORDER BY updated_at DESC LIMIT $2`
	return r.list(ctx, query, domain.LinkStatusFailed, limit)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*LinkRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var out []*LinkRecord
	for rows.Next() {
		rec, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(s scanner) (*LinkRecord, error) {
	var (
		rec       LinkRecord
		cartID    sql.NullString
		version   sql.NullInt64
		qrURL     sql.NullString
		lastError sql.NullString
	)
	err := s.Scan(
		&rec.LinkID,
		&rec.Status,
		&cartID,
		&version,
		&qrURL,
		&rec.EventPayload,
		&lastError,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.CartID = cartID.String
	rec.CartVersion = version.Int64
	rec.QRCodeURL = qrURL.String
	rec.LastError = lastError.String
	return &rec, nil
}
