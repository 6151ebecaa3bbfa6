package alchemy

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/eringen/alchemy/vision"
)

const modelOutput = `TITLE: Sunlit Reading Nook
---
DESCRIPTION: A quiet corner with a linen armchair and a stack of novels.
---
ALT_TEXT: Armchair beside a bright window
---
KEYWORDS: reading nook, cozy corner, home library
---
BOARD: Home Decor
---`

func staticDescriber(text string, err error) vision.Describer {
	return vision.DescriberFunc(func(context.Context, []byte, string, string) (string, error) {
		return text, err
	})
}

type appOption func(*Config)

func newTestApp(t *testing.T, d vision.Describer, opts ...appOption) *App {
	t.Helper()
	dir := t.TempDir()
	if d == nil {
		d = staticDescriber(modelOutput, nil)
	}
	cfg := Config{
		DBPath:        filepath.Join(dir, "alchemy.db"),
		BaseURL:       "https://alchemy.test",
		SessionSecret: "test-session-secret",
		AdminOTPs:     []string{"letmein"},
		CronSecret:    "cron-secret",
	}
	for _, o := range opts {
		o(&cfg)
	}
	a := New(cfg, WithDescriber(d), WithStaticDir(filepath.Join(dir, "public")))
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { a.Close() })
	return a
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 120, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// seedImage stores an image file and its row for user.
func seedImage(t *testing.T, a *App, user string, mutate func(*Image)) Image {
	t.Helper()
	name, err := writeUnique(a.uploadsDir(), "seed", pngBytes(t, 40, 20))
	require.NoError(t, err)
	img := &Image{
		UserID:   user,
		Filename: name,
		URL:      "/public/uploads/" + name,
		Status:   StatusProcessing,
		Size:     1024,
	}
	if mutate != nil {
		mutate(img)
	}
	require.NoError(t, a.Store.CreateImage(context.Background(), img))
	return *img
}

// apiContext builds a context for calling a handler directly as user.
func apiContext(a *App, method, target string, body io.Reader, user string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := a.Echo.NewContext(req, rec)
	if user != "" {
		c.Set(userContextKey, user)
	}
	return c, rec
}

// withSession runs h behind the session middleware.
func withSession(a *App, h echo.HandlerFunc) echo.HandlerFunc {
	return session.Middleware(a.newSessionStore())(h)
}

// loginCookie logs in through the handler and returns the session cookie.
func loginCookie(t *testing.T, a *App) *http.Cookie {
	t.Helper()
	c, rec := formContext(a, "/login/", "otp=letmein")
	require.NoError(t, withSession(a, a.handleLogin)(c))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionName {
			return ck
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func formContext(a *App, target, form string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBufferString(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return a.Echo.NewContext(req, rec), rec
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 10*time.Millisecond)
}
