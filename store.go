package alchemy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/eringen/alchemy/metadata"
)

// ErrNotFound is returned when an image does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// Store keeps image records in SQLite through bun.
type Store struct {
	db *bun.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the request handlers read while workers write results.
	if _, err := sqldb.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		sqldb.Close()
		return nil, err
	}
	sqldb.SetMaxOpenConns(4)
	sqldb.SetMaxIdleConns(4)

	s := &Store{db: bun.NewDB(sqldb, sqlitedialect.New())}
	if err := s.ensureSchema(context.Background()); err != nil {
		s.db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Image)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create images table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().Model((*Image)(nil)).Index("images_user_created_idx").
		Column("user_id", "created_at").IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create images index: %w", err)
	}
	return nil
}

// CreateImage inserts img, assigning an ID and creation time when unset.
func (s *Store) CreateImage(ctx context.Context, img *Image) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now().UTC()
	}
	if img.Status == "" {
		img.Status = StatusProcessing
	}
	_, err := s.db.NewInsert().Model(img).Exec(ctx)
	return err
}

// GetImage returns the user's image by id.
func (s *Store) GetImage(ctx context.Context, userID, id string) (Image, error) {
	var img Image
	err := s.db.NewSelect().Model(&img).Where("id = ? AND user_id = ?", id, userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Image{}, ErrNotFound
	}
	return img, err
}

// ImageByID returns an image regardless of owner, for background workers.
func (s *Store) ImageByID(ctx context.Context, id string) (Image, error) {
	var img Image
	err := s.db.NewSelect().Model(&img).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Image{}, ErrNotFound
	}
	return img, err
}

// ListImages returns the user's images, newest first.
func (s *Store) ListImages(ctx context.Context, userID string) ([]Image, error) {
	images := []Image{}
	err := s.db.NewSelect().Model(&images).Where("user_id = ?", userID).
		Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return images, nil
}

// TotalSize sums the sizes of the user's images.
func (s *Store) TotalSize(ctx context.Context, userID string) (int64, error) {
	var total sql.NullInt64
	err := s.db.NewSelect().Model((*Image)(nil)).ColumnExpr("SUM(size)").
		Where("user_id = ?", userID).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// UpdateImage stores manually edited metadata and link.
func (s *Store) UpdateImage(ctx context.Context, userID, id string, md metadata.Record, link string) error {
	raw, err := json.Marshal(md)
	if err != nil {
		return err
	}
	res, err := s.db.NewUpdate().Model((*Image)(nil)).
		Set("metadata = ?", string(raw)).
		Set("link = ?", link).
		Where("id = ? AND user_id = ?", id, userID).
		Exec(ctx)
	return checkAffected(res, err)
}

// SetResult records the outcome of processing an image.
func (s *Store) SetResult(ctx context.Context, id, status string, md metadata.Record, errMsg string) error {
	raw, err := json.Marshal(md)
	if err != nil {
		return err
	}
	res, err := s.db.NewUpdate().Model((*Image)(nil)).
		Set("status = ?", status).
		Set("metadata = ?", string(raw)).
		Set("error = ?", errMsg).
		Where("id = ?", id).
		Exec(ctx)
	return checkAffected(res, err)
}

// DeleteImages removes the user's images with the given ids and returns the
// rows that were removed. Ids of other users are ignored.
func (s *Store) DeleteImages(ctx context.Context, userID string, ids []string) ([]Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var deleted []Image
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&deleted).
			Where("user_id = ? AND id IN (?)", userID, bun.In(ids)).Scan(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*Image)(nil)).
			Where("user_id = ? AND id IN (?)", userID, bun.In(ids)).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ListByStatus returns every image in the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status string) ([]Image, error) {
	var images []Image
	err := s.db.NewSelect().Model(&images).Where("status = ?", status).
		Order("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return images, nil
}

// ListExpired returns images created before the cutoff.
func (s *Store) ListExpired(ctx context.Context, before time.Time) ([]Image, error) {
	var images []Image
	err := s.db.NewSelect().Model(&images).Where("created_at < ?", before.UTC()).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return images, nil
}

// DeleteByIDs removes images regardless of owner and reports how many went.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.NewDelete().Model((*Image)(nil)).Where("id IN (?)", bun.In(ids)).Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
