package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/IgorGrieder/shorty/internal/infrastructure/db"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const linksTable = "links"

// Timestamps are stored as unix nanoseconds so ordering and MAX() stay
// numeric and keep full precision.
type linkRow struct {
	Code        string        `db:"code"`
	Target      string        `db:"target"`
	Clicks      int64         `db:"clicks"`
	LastClicked sql.NullInt64 `db:"last_clicked"`
	CreatedAt   int64         `db:"created_at"`
}

type LinksRepository struct {
	conn *sql.DB
	qb   *goqu.Database
}

func NewLinksRepository(s *db.SQLite) (*LinksRepository, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("sqlite handle is nil")
	}
	return &LinksRepository{
		conn: s.DB,
		qb:   goqu.New("sqlite3", s.DB),
	}, nil
}

func (r *LinksRepository) Create(ctx context.Context, code, target string, createdAt time.Time) (*links.Link, error) {
	row := linkRow{
		Code:      code,
		Target:    target,
		CreatedAt: createdAt.UTC().UnixNano(),
	}

	_, err := r.qb.Insert(linksTable).Rows(row).Executor().ExecContext(ctx)
	if err != nil {
		if isDuplicate(err) {
			return nil, links.ErrDuplicateCode
		}
		return nil, fmt.Errorf("insert link: %w", err)
	}

	return row.toDomain(), nil
}

func (r *LinksRepository) Get(ctx context.Context, code string) (*links.Link, error) {
	var row linkRow
	found, err := r.qb.From(linksTable).
		Where(goqu.Ex{"code": code}).
		Executor().
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	if !found {
		return nil, links.ErrNotFound
	}
	return row.toDomain(), nil
}

func (r *LinksRepository) List(ctx context.Context) ([]links.Link, error) {
	var rows []linkRow
	err := r.qb.From(linksTable).
		Order(goqu.C("created_at").Desc(), goqu.C("rowid").Desc()).
		Executor().
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	out := make([]links.Link, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.toDomain())
	}
	return out, nil
}

func (r *LinksRepository) Delete(ctx context.Context, code string) (bool, error) {
	res, err := r.qb.Delete(linksTable).
		Where(goqu.Ex{"code": code}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("delete link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete link: %w", err)
	}
	return n > 0, nil
}

func (r *LinksRepository) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	_, err := r.qb.From(linksTable).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"code": code}).
		Executor().
		ScanValContext(ctx, &count)
	if err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	return count > 0, nil
}

func (r *LinksRepository) RecordClick(ctx context.Context, code string, at time.Time) error {
	res, err := r.qb.Update(linksTable).
		Set(goqu.Record{
			"clicks":       goqu.L("clicks + 1"),
			"last_clicked": goqu.L("MAX(COALESCE(last_clicked, 0), ?, created_at)", at.UTC().UnixNano()),
		}).
		Where(goqu.Ex{"code": code}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	if n == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) Ping(ctx context.Context) error {
	return r.conn.PingContext(ctx)
}

// Close is a no-op; the connection belongs to the db.SQLite handle.
func (r *LinksRepository) Close() error {
	return nil
}

func (row linkRow) toDomain() *links.Link {
	link := &links.Link{
		Code:      row.Code,
		Target:    row.Target,
		Clicks:    row.Clicks,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
	}
	if row.LastClicked.Valid {
		t := time.Unix(0, row.LastClicked.Int64).UTC()
		link.LastClicked = &t
	}
	return link
}

func isDuplicate(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
