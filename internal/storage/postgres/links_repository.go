package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IgorGrieder/shorty/internal/infrastructure/db"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const (
	insertLinkSQL = `
INSERT INTO links (code, target, clicks, last_clicked, created_at)
VALUES ($1, $2, 0, NULL, $3)
RETURNING code, target, clicks, last_clicked, created_at`

	getLinkSQL = `
SELECT code, target, clicks, last_clicked, created_at
FROM links
WHERE code = $1`

	listLinksSQL = `
SELECT code, target, clicks, last_clicked, created_at
FROM links
ORDER BY created_at DESC, code ASC`

	deleteLinkSQL = `DELETE FROM links WHERE code = $1`

	existsLinkSQL = `SELECT EXISTS (SELECT 1 FROM links WHERE code = $1)`

	// GREATEST skips NULLs, so the first click lands on at (or created_at
	// if at is older) and later clicks never move last_clicked backwards.
	recordClickSQL = `
UPDATE links
SET clicks = clicks + 1,
    last_clicked = GREATEST(last_clicked, $2::timestamptz, created_at)
WHERE code = $1`
)

type LinksRepository struct {
	pool *pgxpool.Pool
}

func NewLinksRepository(p *db.Postgres) (*LinksRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &LinksRepository{pool: p.Pool}, nil
}

func (r *LinksRepository) Create(ctx context.Context, code, target string, createdAt time.Time) (*links.Link, error) {
	row := r.pool.QueryRow(ctx, insertLinkSQL, code, target, toTimestamptz(createdAt))

	link, err := scanLink(row)
	if err == nil {
		return link, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, links.ErrDuplicateCode
	}
	return nil, fmt.Errorf("insert link: %w", err)
}

func (r *LinksRepository) Get(ctx context.Context, code string) (*links.Link, error) {
	link, err := scanLink(r.pool.QueryRow(ctx, getLinkSQL, code))
	if err == nil {
		return link, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, links.ErrNotFound
	}
	return nil, fmt.Errorf("get link: %w", err)
}

func (r *LinksRepository) List(ctx context.Context) ([]links.Link, error) {
	rows, err := r.pool.Query(ctx, listLinksSQL)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	out := make([]links.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return out, nil
}

func (r *LinksRepository) Delete(ctx context.Context, code string) (bool, error) {
	tag, err := r.pool.Exec(ctx, deleteLinkSQL, code)
	if err != nil {
		return false, fmt.Errorf("delete link: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LinksRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, existsLinkSQL, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	return exists, nil
}

func (r *LinksRepository) RecordClick(ctx context.Context, code string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, recordClickSQL, code, toTimestamptz(at))
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close is a no-op; the pool belongs to the db.Postgres handle.
func (r *LinksRepository) Close() error {
	return nil
}

func scanLink(row pgx.Row) (*links.Link, error) {
	var (
		link        links.Link
		lastClicked pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
	)
	if err := row.Scan(&link.Code, &link.Target, &link.Clicks, &lastClicked, &createdAt); err != nil {
		return nil, err
	}

	link.CreatedAt = createdAt.Time.UTC()
	if lastClicked.Valid {
		t := lastClicked.Time.UTC()
		link.LastClicked = &t
	}
	return &link, nil
}

func toTimestamptz(v time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  v.UTC(),
		Valid: true,
	}
}
