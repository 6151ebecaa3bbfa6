package alchemy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/alchemy/schedule"
	"github.com/eringen/alchemy/views"
)

// ErrNothingReady is returned when a user has no complete images.
var ErrNothingReady = errors.New("No processed images are available to schedule.")

var errBadStartDate = errors.New("startDate must be formatted as YYYY-MM-DD")

type scheduleRequest struct {
	StartDate   string `json:"startDate" query:"startDate"`
	NumDays     int    `json:"numDays" query:"numDays"`
	PostsPerDay int    `json:"postsPerDay" query:"postsPerDay"`
}

// cadence parses the request. An empty start date means today in loc.
func (r scheduleRequest) cadence(now time.Time, loc *time.Location) (schedule.Cadence, error) {
	start := now.In(loc)
	if r.StartDate != "" {
		t, err := time.ParseInLocation(time.DateOnly, r.StartDate, loc)
		if err != nil {
			return schedule.Cadence{}, errBadStartDate
		}
		start = t
	}
	return schedule.Cadence{Start: start, Days: r.NumDays, PostsPerDay: r.PostsPerDay}, nil
}

// ReadySources returns the user's complete images as scheduler input, in
// listing order.
func (a *App) ReadySources(ctx context.Context, userID string) ([]schedule.Source, error) {
	images, err := a.Store.ListImages(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ReadySources(images, a.Config.BaseURL), nil
}

// ReadySources converts images to scheduler input and keeps the eligible ones.
func ReadySources(images []Image, baseURL string) []schedule.Source {
	src := make([]schedule.Source, len(images))
	for i, img := range images {
		src[i] = img.Source(baseURL)
	}
	return schedule.Eligible(src)
}

// BuildSchedule generates a schedule for the user's ready images.
func BuildSchedule(ready []schedule.Source, c schedule.Cadence) ([]schedule.Item, error) {
	if err := c.Valid(); err != nil {
		return nil, err
	}
	if len(ready) == 0 {
		return nil, ErrNothingReady
	}
	return schedule.Generate(ready, c)
}

// scheduleFor runs the whole flow and maps failures to a status code.
func (a *App) scheduleFor(c echo.Context, req scheduleRequest) ([]schedule.Item, int, error) {
	cad, err := req.cadence(time.Now(), time.Local)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	ready, err := a.ReadySources(c.Request().Context(), currentUser(c))
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	items, err := BuildSchedule(ready, cad)
	var insufficient *schedule.InsufficientItemsError
	switch {
	case err == nil:
		return items, http.StatusOK, nil
	case errors.Is(err, schedule.ErrInvalidCadence):
		return nil, http.StatusBadRequest, err
	case errors.Is(err, ErrNothingReady), errors.As(err, &insufficient):
		return nil, http.StatusUnprocessableEntity, err
	default:
		return nil, http.StatusInternalServerError, err
	}
}

func (a *App) handleSchedulerPage(c echo.Context) error {
	ready, err := a.ReadySources(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return Render(c, a.Views.Scheduler(views.SchedulerData{
		Ready:     len(ready),
		StartDate: time.Now().Format(time.DateOnly),
		CSRFToken: CsrfToken(c),
	}))
}

func (a *App) handleGenerateSchedule(c echo.Context) error {
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	items, code, err := a.scheduleFor(c, req)
	if err != nil {
		if code >= 500 {
			return err
		}
		return jsonError(c, code, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"schedule": items})
}

func (a *App) handleScheduleCSV(c echo.Context) error {
	var req scheduleRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid query parameters")
	}
	items, code, err := a.scheduleFor(c, req)
	if err != nil {
		if code >= 500 {
			return err
		}
		return jsonError(c, code, err.Error())
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+schedule.FileName(time.Now())+`"`)
	res.WriteHeader(http.StatusOK)
	return schedule.WriteCSV(res, items)
}
