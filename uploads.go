package alchemy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/alchemy/presets"
	"github.com/eringen/alchemy/vision"
)

const maxUploadSize = vision.MaxImageBytes

// errTooLarge marks uploads over maxUploadSize.
var errTooLarge = fmt.Errorf("file too large (max %dMB)", maxUploadSize>>20)

// writeUnique stores data as <base>.jpg in dir, adding -2, -3, ... until the
// name is free. The file is created exclusively so concurrent uploads never
// share a name.
func writeUnique(dir, base string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	for counter := 1; ; counter++ {
		name := base + ".jpg"
		if counter > 1 {
			name = fmt.Sprintf("%s-%d.jpg", base, counter)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create image: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("write image: %w", err)
		}
		return name, f.Close()
	}
}

// readUpload returns the raw bytes of the "image" form file, or of the image
// at the "url" form value.
func (a *App) readUpload(c echo.Context) ([]byte, string, error) {
	if file, err := c.FormFile("image"); err == nil {
		if file.Size > maxUploadSize {
			return nil, "", errTooLarge
		}
		src, err := file.Open()
		if err != nil {
			return nil, "", err
		}
		defer src.Close()
		data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
		if err != nil {
			return nil, "", err
		}
		if len(data) > maxUploadSize {
			return nil, "", errTooLarge
		}
		return data, file.Filename, nil
	}

	url := strings.TrimSpace(c.FormValue("url"))
	if url == "" {
		return nil, "", errors.New("no image file provided")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, "", errors.New("url must be http or https")
	}
	data, _, err := vision.Fetch(c.Request().Context(), a.httpClient, url)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(strings.SplitN(url, "?", 2)[0]), nil
}

func (a *App) handleUpload(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)

	raw, name, err := a.readUpload(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	data, _, err := presets.Optimize(bytes.NewReader(raw))
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid image: "+err.Error())
	}

	used, err := a.Store.TotalSize(ctx, user)
	if err != nil {
		return err
	}
	if used+int64(len(data)) > UserQuota {
		return jsonError(c, http.StatusRequestEntityTooLarge, "Storage quota exceeded")
	}

	filename, err := writeUnique(a.uploadsDir(), slugifyFilename(name), data)
	if err != nil {
		return err
	}
	img := &Image{
		UserID:   user,
		Filename: filename,
		URL:      "/public/" + uploadsSubdir + "/" + filename,
		Status:   StatusProcessing,
		Size:     int64(len(data)),
	}
	if err := a.Store.CreateImage(ctx, img); err != nil {
		_ = removeUpload(a.uploadsDir(), filename)
		return err
	}
	a.Cache.Invalidate(user)

	if err := a.Queue.Submit(img.ID); err != nil {
		c.Logger().Warnf("queue image %s: %v", img.ID, err)
		img.Status, img.Error = StatusFailed, err.Error()
		if serr := a.Store.SetResult(ctx, img.ID, img.Status, img.Metadata, img.Error); serr != nil {
			return serr
		}
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": err.Error(), "image": img})
	}
	return c.JSON(http.StatusAccepted, map[string]any{"success": true, "image": img})
}
