package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/aiscout/pkg/product"
)

// SQLiteStore implements Store as a document table in SQLite. Each row holds
// the full JSON record plus a few indexed columns for filtering.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) ([]product.Product, error) {
	return s.List(ctx, ListOpts{})
}

func (s *SQLiteStore) Save(ctx context.Context, records []product.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}

	now := time.Now().UTC()
	for i := range records {
		p := &records[i]
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode product %q: %w", p.Name, err)
		}
		query, args, err := sq.Insert("products").
			Columns("position", "id", "identity_key", "name", "source", "content_type", "dark_horse_index", "doc", "updated_at").
			Values(i, p.ID, p.IdentityKey(), p.Name, p.Source, p.ContentType, p.DarkHorseIndex, string(doc), now).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert product %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*product.Product, error) {
	query, args, err := sq.Select("doc").From("products").
		Where(sq.Eq{"id": id}).
		OrderBy("position").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}

	var doc string
	err = s.db.GetContext(ctx, &doc, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}

	var p product.Product
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	return &p, nil
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOpts) ([]product.Product, error) {
	b := sq.Select("doc").From("products").OrderBy("position")

	if opts.Source != "" {
		b = b.Where(sq.Eq{"source": opts.Source})
	}
	if len(opts.ContentTypes) > 0 {
		b = b.Where(sq.Eq{"content_type": opts.ContentTypes})
	}
	if opts.MinIndex > 0 {
		b = b.Where(sq.GtOrEq{"dark_horse_index": opts.MinIndex})
	}
	if opts.Limit > 0 {
		b = b.Limit(uint64(opts.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	var docs []string
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return decodeDocs(docs)
}

func (s *SQLiteStore) SaveWeek(ctx context.Context, week string, records []product.Product) error {
	if week == "" {
		return errors.New("save week: empty week key")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save week: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM weekly_snapshots WHERE week_key = ?", week); err != nil {
		return fmt.Errorf("clear week %s: %w", week, err)
	}
	for i := range records {
		doc, err := json.Marshal(&records[i])
		if err != nil {
			return fmt.Errorf("encode product %q: %w", records[i].Name, err)
		}
		query, args, err := sq.Insert("weekly_snapshots").
			Columns("week_key", "position", "product_id", "doc").
			Values(week, i, records[i].ID, string(doc)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert week %s: %w", week, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save week: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Weeks(ctx context.Context) ([]string, error) {
	var weeks []string
	err := s.db.SelectContext(ctx, &weeks,
		"SELECT DISTINCT week_key FROM weekly_snapshots ORDER BY week_key DESC")
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	return weeks, nil
}

func (s *SQLiteStore) LoadWeeks(ctx context.Context) ([]product.Product, error) {
	query, args, err := sq.Select("doc").From("weekly_snapshots").
		OrderBy("week_key DESC", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build load weeks: %w", err)
	}
	var docs []string
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("load weeks: %w", err)
	}
	return decodeDocs(docs)
}

func decodeDocs(docs []string) ([]product.Product, error) {
	records := make([]product.Product, 0, len(docs))
	for _, doc := range docs {
		var p product.Product
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		records = append(records, p)
	}
	return records, nil
}
