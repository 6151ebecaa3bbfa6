package alchemy

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/alchemy/metadata"
	"github.com/eringen/alchemy/presets"
	"github.com/eringen/alchemy/views"
)

// maxBatch caps the ids accepted by bulk endpoints.
const maxBatch = 100

type idsRequest struct {
	ImageIDs []string `json:"imageIds"`
}

func (r idsRequest) ids() []string {
	return FilterEmpty(r.ImageIDs)
}

type updateRequest struct {
	Metadata metadata.Record `json:"metadata"`
	Link     string          `json:"link"`
}

func (a *App) toView(img Image, now time.Time) views.ImageView {
	md := img.Metadata
	v := views.ImageView{
		ID:          img.ID,
		URL:         img.URL,
		Status:      img.Status,
		Title:       md.Title,
		Description: md.Description,
		AltText:     md.AltText,
		Keywords:    strings.Join(md.Keywords, ", "),
		Hashtags:    strings.Join(md.Hashtags, " "),
		Board:       md.PinterestBoard,
		Link:        img.Link,
		Error:       img.Error,
	}
	if a.Config.ImageTTL > 0 {
		v.ExpiresIn = views.Remaining(img.ExpiresAt(a.Config.ImageTTL), now)
	}
	return v
}

func (a *App) handleDashboard(c echo.Context) error {
	user := currentUser(c)
	listing, err := a.Cache.Get(c.Request().Context(), user)
	if err != nil {
		return err
	}
	now := time.Now()
	cards := make([]views.ImageView, 0, len(listing.Images))
	for _, img := range listing.Images {
		cards = append(cards, a.toView(img, now))
	}
	return Render(c, a.Views.Dashboard(views.DashboardData{
		UserID:    user,
		Images:    cards,
		TotalSize: listing.TotalSize,
		Quota:     listing.UserQuota,
		Presets:   presets.Grouped(),
		CSRFToken: CsrfToken(c),
		Message:   c.QueryParam("msg"),
	}))
}

func (a *App) handleListImages(c echo.Context) error {
	listing, err := a.Cache.Get(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listing)
}

func (a *App) handleUpdateImage(c echo.Context) error {
	user := currentUser(c)
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	md := req.Metadata
	md.Keywords = FilterEmpty(md.Keywords)
	if md.Keywords == nil {
		md.Keywords = []string{}
	}
	md.Hashtags = metadata.Hashtags(md.Keywords)

	id := c.Param("id")
	if err := a.Store.UpdateImage(c.Request().Context(), user, id, md, strings.TrimSpace(req.Link)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "Image not found")
		}
		return err
	}
	a.Cache.Invalidate(user)

	img, err := a.Store.GetImage(c.Request().Context(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "image": img})
}

func (a *App) handleBulkDelete(c echo.Context) error {
	user := currentUser(c)
	var req idsRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	ids := req.ids()
	if len(ids) == 0 {
		return jsonError(c, http.StatusBadRequest, "Missing imageIds")
	}

	deleted, err := a.Store.DeleteImages(c.Request().Context(), user, ids)
	if err != nil {
		return err
	}
	for _, img := range deleted {
		if err := removeUpload(a.uploadsDir(), img.Filename); err != nil {
			c.Logger().Warnf("remove %s: %v", img.Filename, err)
		}
	}
	a.Cache.Invalidate(user)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "deleted": len(deleted)})
}

func (a *App) handleRegenerate(c echo.Context) error {
	user := currentUser(c)
	ctx := c.Request().Context()
	img, err := a.Store.GetImage(ctx, user, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "Image not found")
	}
	if err != nil {
		return err
	}

	img, err = a.Processor.Process(ctx, img.ID)
	if err != nil {
		c.Logger().Warnf("regenerate %s: %v", img.ID, err)
		return c.JSON(http.StatusBadGateway, map[string]any{"error": err.Error(), "image": img})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "image": img})
}

func (a *App) handleProcessNow(c echo.Context) error {
	user := currentUser(c)
	ctx := c.Request().Context()
	var req idsRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	ids := req.ids()
	if len(ids) == 0 {
		return jsonError(c, http.StatusBadRequest, "Missing imageIds")
	}
	if len(ids) > maxBatch {
		return jsonError(c, http.StatusBadRequest, fmt.Sprintf("At most %d images per request", maxBatch))
	}

	owned := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := a.Store.GetImage(ctx, user, id); err == nil {
			owned = append(owned, id)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if len(owned) == 0 {
		return jsonError(c, http.StatusNotFound, "Image not found")
	}

	results := a.Processor.ProcessBatch(ctx, owned, a.Config.WorkerCount)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "results": results})
}

func (a *App) handleDownload(c echo.Context) error {
	user := currentUser(c)
	key := c.QueryParam("preset")
	if key == "" {
		key = presets.Original
	}
	preset, ok := presets.Lookup(key)
	if !ok {
		return c.String(http.StatusBadRequest, "Unknown preset")
	}
	img, err := a.Store.GetImage(c.Request().Context(), user, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(a.uploadsDir(), filepath.Base(img.Filename)))
	if errors.Is(err, os.ErrNotExist) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	defer f.Close()

	data, _, err := presets.Resize(f, preset)
	if err != nil {
		return err
	}
	name := Slugify(img.Metadata.Title)
	if name == "" || img.Metadata.Failed() {
		name = strings.TrimSuffix(img.Filename, filepath.Ext(img.Filename))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+"-"+preset.Key+".jpg"))
	return c.Blob(http.StatusOK, "image/jpeg", data)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		msg = http.StatusText(code)
	}

	if isAPI(c) {
		_ = jsonError(c, code, msg)
		return
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound())
	case code >= 500:
		_ = RenderStatus(c, code, a.Views.ServerError())
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
