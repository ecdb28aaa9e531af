package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/cartlink/api-gateway/internal/domain"
)

var (
	ErrLinkNotFound  = errors.New("link not found")
	ErrDuplicateLink = errors.New("link already exists")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MigrationsDirPath string
}

// LinkRecord is one row of the link ledger.
type LinkRecord struct {
	LinkID       string
	Status       domain.LinkStatus
	CartID       string
	CartVersion  int64
	QRCodeURL    string
	EventPayload []byte
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type LinkRepository interface {
	CreateLink(ctx context.Context, linkID string) error
	SetQRStored(ctx context.Context, linkID, qrCodeURL string) error
	SetCartCreated(ctx context.Context, linkID, cartID string, version int64) error
	SetDiscountApplied(ctx context.Context, linkID string, version int64) error
	SetEventPending(ctx context.Context, linkID string, payload []byte) error
	MarkPublished(ctx context.Context, linkID string) error
	MarkFailed(ctx context.Context, linkID, cause string) error
	RecordPublishError(ctx context.Context, linkID, cause string) error
	GetLink(ctx context.Context, linkID string) (*LinkRecord, error)
	GetPendingEvents(ctx context.Context, olderThan time.Duration, limit int) ([]*LinkRecord, error)
	ListFailed(ctx context.Context, limit int) ([]*LinkRecord, error)
	RunMigrations(*Credentials) error
	Close() error
}
