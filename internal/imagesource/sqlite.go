package imagesource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/tOgg1/imagepreview/internal/logging"
)

// SQLiteSource stores channel images in a SQLite database.
type SQLiteSource struct {
	URLBuilder

	db          *sql.DB
	notifier    Notifier
	logger      zerolog.Logger
	busyTimeout int
}

// SQLiteOption configures a SQLiteSource.
type SQLiteOption func(*SQLiteSource)

// WithNotifier installs a hook called after every successful mutation.
func WithNotifier(n Notifier) SQLiteOption {
	return func(s *SQLiteSource) {
		s.notifier = n
	}
}

// WithBaseURL sets the base URL used by DownloadURL.
func WithBaseURL(baseURL string) SQLiteOption {
	return func(s *SQLiteSource) {
		s.BaseURL = baseURL
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database, in milliseconds.
func WithBusyTimeout(ms int) SQLiteOption {
	return func(s *SQLiteSource) {
		if ms > 0 {
			s.busyTimeout = ms
		}
	}
}

// OpenSQLite opens (creating if needed) the image database at path.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	s := &SQLiteSource{
		logger:      logging.Component("image-store"),
		busyTimeout: 5000,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path, s.busyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open image database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to image database: %w", err)
	}
	s.db = db

	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteSource) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS channel_images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel_id TEXT NOT NULL,
			url TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS channel_images_order_idx ON channel_images(channel_id, sequence, id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS channel_images_url_idx ON channel_images(channel_id, url)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize image schema: %w", err)
		}
	}
	return nil
}

// ImagesByChannel returns the channel's images ordered by sequence.
func (s *SQLiteSource) ImagesByChannel(ctx context.Context, channelID string) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, sequence, width, height
		FROM channel_images
		WHERE channel_id = ?
		ORDER BY sequence, id
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel images: %w", err)
	}
	defer rows.Close()

	images := []Image{}
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.URL, &img.Sequence, &img.Width, &img.Height); err != nil {
			return nil, fmt.Errorf("failed to scan channel image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read channel images: %w", err)
	}
	return images, nil
}

// AddImage stores an image for the channel. Re-adding an existing URL
// updates its sequence and dimensions. A zero Sequence appends after the
// channel's current last image.
func (s *SQLiteSource) AddImage(ctx context.Context, channelID string, img Image) error {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return errors.New("channel id is required")
	}
	if strings.TrimSpace(img.URL) == "" {
		return errors.New("image url is required")
	}

	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	err := transactionWithRetry(ctx, s.db, func(tx *sql.Tx) error {
		seq := img.Sequence
		if seq == 0 {
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(sequence), 0) + 1 FROM channel_images WHERE channel_id = ?`,
				channelID,
			).Scan(&seq); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO channel_images (channel_id, url, sequence, width, height, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(channel_id, url) DO UPDATE SET
				sequence = excluded.sequence,
				width = excluded.width,
				height = excluded.height
		`, channelID, img.URL, seq, img.Width, img.Height, createdAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to add channel image: %w", err)
	}

	s.logger.Debug().
		Str("channel_id", channelID).
		Str("url", logging.RedactURL(img.URL)).
		Msg("image stored")
	s.notify(ctx, channelID)
	return nil
}

// RemoveImage deletes an image from the channel. It reports whether a row was removed.
func (s *SQLiteSource) RemoveImage(ctx context.Context, channelID, imageURL string) (bool, error) {
	var removed int64
	err := transactionWithRetry(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM channel_images WHERE channel_id = ? AND url = ?`,
			channelID, imageURL,
		)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove channel image: %w", err)
	}
	if removed > 0 {
		s.notify(ctx, channelID)
	}
	return removed > 0, nil
}

// Channels lists channel ids that have at least one image.
func (s *SQLiteSource) Channels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT channel_id FROM channel_images ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, id)
	}
	return channels, rows.Err()
}

func (s *SQLiteSource) notify(ctx context.Context, channelID string) {
	if s.notifier != nil {
		s.notifier.ImagesChanged(ctx, channelID)
	}
}
