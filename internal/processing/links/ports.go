package links

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("link not found")
	ErrInvalidTarget = errors.New("invalid target url")
	ErrInvalidCode   = errors.New("invalid code")
	ErrCodeExists    = errors.New("code already exists")

	// ErrDuplicateCode is returned by a Store when the primary key is already taken.
	ErrDuplicateCode = errors.New("duplicate code")

	// ErrCodeSpaceExhausted means every generation attempt collided.
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique code")
)

// Store persists links. Implementations must enforce code uniqueness themselves;
// the existence check done by the Allocator is only an optimization.
type Store interface {
	Create(ctx context.Context, code, target string, createdAt time.Time) (*Link, error)
	Get(ctx context.Context, code string) (*Link, error)
	List(ctx context.Context) ([]Link, error)
	Delete(ctx context.Context, code string) (bool, error)
	Exists(ctx context.Context, code string) (bool, error)
	// RecordClick increments clicks by one and moves last_clicked forward to at
	// in a single atomic update. Returns ErrNotFound if the code is gone.
	RecordClick(ctx context.Context, code string, at time.Time) error
	Ping(ctx context.Context) error
	Close() error
}

type CodeGenerator interface {
	Generate(length int) (string, error)
}

// ClickRecorder receives accepted redirects. The store itself satisfies it for
// direct recording; the Kafka publisher satisfies it for the async pipeline.
type ClickRecorder interface {
	RecordClick(ctx context.Context, code string, at time.Time) error
}
