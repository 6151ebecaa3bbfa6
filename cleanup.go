package alchemy

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
)

// Cleaner deletes images older than TTL, files first and then rows.
type Cleaner struct {
	Store *Store
	Dir   string
	TTL   time.Duration
	// OnDelete is called with the number of removed rows when it is non-zero.
	OnDelete func(n int)

	now func() time.Time
}

func (c *Cleaner) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Run removes expired images and reports how many rows were deleted.
func (c *Cleaner) Run(ctx context.Context) (int, error) {
	expired, err := c.Store.ListExpired(ctx, c.clock().Add(-c.TTL))
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	for _, img := range expired {
		if err := removeUpload(c.Dir, img.Filename); err != nil {
			log.Printf("[cleanup] remove %s: %v", img.Filename, err)
		}
		ids = append(ids, img.ID)
	}
	n, err := c.Store.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	if n > 0 && c.OnDelete != nil {
		c.OnDelete(n)
	}
	return n, nil
}

// StartScheduler runs Run every interval. Returns a stop function.
func (c *Cleaner) StartScheduler(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				n, err := c.Run(context.Background())
				if err != nil {
					log.Printf("[cleanup] error: %v", err)
				} else if n > 0 {
					log.Printf("[cleanup] removed %d expired images", n)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

// removeUpload deletes a stored file; a missing file is not an error.
func removeUpload(dir, filename string) error {
	if filename == "" {
		return nil
	}
	err := os.Remove(filepath.Join(dir, filepath.Base(filename)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (a *App) handleCronCleanup(c echo.Context) error {
	want := "Bearer " + a.Config.CronSecret
	got := c.Request().Header.Get(echo.HeaderAuthorization)
	if a.Config.CronSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return jsonError(c, http.StatusUnauthorized, "Unauthorized")
	}
	n, err := a.Cleaner.Run(c.Request().Context())
	if err != nil {
		return err
	}
	c.Logger().Infof("cron cleanup removed %d images", n)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "cleanedUp": n})
}
