package listings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS group_posts (
	id              BIGSERIAL PRIMARY KEY,
	platform        TEXT NOT NULL,
	order_link      TEXT NOT NULL,
	title           TEXT,
	cover_image_url TEXT,
	price           DOUBLE PRECISION,
	original_price  DOUBLE PRECISION,
	group_size      INTEGER NOT NULL DEFAULT 3,
	joined_count    INTEGER NOT NULL DEFAULT 1,
	end_time        TIMESTAMPTZ,
	is_subsidized   BOOLEAN NOT NULL DEFAULT FALSE,
	published_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS group_posts_order_link_idx ON group_posts (order_link);
`

// PostgresStore stores listings in the group_posts table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and makes sure the schema exists
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) FindByLink(ctx context.Context, link string) (*Listing, error) {
	link = NormalizeLink(link)
	if link == "" {
		return nil, nil
	}

	var l Listing
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, order_link FROM group_posts WHERE order_link = $1 ORDER BY published_at LIMIT 1`,
		link,
	).Scan(&l.ID, &l.OrderLink)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query group_posts: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) Create(ctx context.Context, l *Listing) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO group_posts
			(platform, order_link, title, cover_image_url, price, original_price,
			 group_size, joined_count, end_time, is_subsidized, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id::text`,
		l.Platform, NormalizeLink(l.OrderLink), l.Title, l.CoverImageURL, l.Price, l.OriginalPrice,
		l.GroupSize, l.JoinedCount, l.EndTime, l.IsSubsidized, l.PublishedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert group_post: %w", err)
	}
	return id, nil
}
