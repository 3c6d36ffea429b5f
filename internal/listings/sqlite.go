package listings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS group_posts (
	id TEXT PRIMARY KEY,
	platform TEXT NOT NULL,
	order_link TEXT NOT NULL,
	title TEXT,
	cover_image_url TEXT,
	price REAL,
	original_price REAL,
	group_size INTEGER NOT NULL DEFAULT 3,
	joined_count INTEGER NOT NULL DEFAULT 1,
	end_time DATETIME,
	is_subsidized BOOLEAN NOT NULL DEFAULT 0,
	published_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS group_posts_order_link_idx ON group_posts (order_link);
`

// SQLiteStore stores listings in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection: ":memory:" databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByLink(ctx context.Context, link string) (*Listing, error) {
	link = NormalizeLink(link)
	if link == "" {
		return nil, nil
	}

	var l Listing
	err := s.db.QueryRowContext(ctx,
		`SELECT id, order_link FROM group_posts WHERE order_link = ? ORDER BY published_at LIMIT 1`,
		link,
	).Scan(&l.ID, &l.OrderLink)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query group_posts: %w", err)
	}
	return &l, nil
}

func (s *SQLiteStore) Create(ctx context.Context, l *Listing) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_posts
			(id, platform, order_link, title, cover_image_url, price, original_price,
			 group_size, joined_count, end_time, is_subsidized, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, l.Platform, NormalizeLink(l.OrderLink), l.Title, l.CoverImageURL, l.Price, l.OriginalPrice,
		l.GroupSize, l.JoinedCount, l.EndTime, l.IsSubsidized, l.PublishedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert group_post: %w", err)
	}
	return id, nil
}
