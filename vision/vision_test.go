package vision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudflareDescribe(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody cloudflareRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"description":" TITLE: Hello "},"success":true}`))
	}))
	defer srv.Close()

	cf := NewCloudflare("acct", "secret", "")
	cf.BaseURL = srv.URL

	text, err := cf.Describe(context.Background(), []byte{0, 1, 255}, "image/jpeg", "describe")
	require.NoError(t, err)
	assert.Equal(t, "TITLE: Hello", text)
	assert.Equal(t, "/accounts/acct/ai/run/"+DefaultCloudflareModel, gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "describe", gotBody.Prompt)
	assert.Equal(t, []int{0, 1, 255}, gotBody.Image)
}

func TestCloudflareErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":["bad token"]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	cf := NewCloudflare("acct", "bad", "m")
	cf.BaseURL = srv.URL

	_, err := cf.Describe(context.Background(), []byte{1}, "", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "bad token")
}

func TestCloudflareEmptyDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{},"success":true}`))
	}))
	defer srv.Close()

	cf := NewCloudflare("acct", "t", "m")
	cf.BaseURL = srv.URL

	_, err := cf.Describe(context.Background(), []byte{1}, "", "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("pngdata"))
	}))
	defer srv.Close()

	data, mime, err := Fetch(context.Background(), nil, srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))
	assert.Equal(t, "image/png", mime)

	_, _, err = Fetch(context.Background(), srv.Client(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "")
	assert.Error(t, err)
}

func TestExtractTextEmpty(t *testing.T) {
	_, err := extractText(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	calls := 0
	fail := errors.New("boom")
	b := NewBreaker(DescriberFunc(func(context.Context, []byte, string, string) (string, error) {
		calls++
		return "", fail
	}), 2, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := b.Describe(context.Background(), nil, "", "")
		assert.ErrorIs(t, err, fail)
	}
	assert.Equal(t, StateOpen, b.State())

	_, err := b.Describe(context.Background(), nil, "", "")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fail := true
	b := NewBreaker(DescriberFunc(func(context.Context, []byte, string, string) (string, error) {
		if fail {
			return "", errors.New("down")
		}
		return "ok", nil
	}), 1, 30*time.Second)
	b.now = func() time.Time { return now }

	_, _ = b.Describe(context.Background(), nil, "", "")
	require.Equal(t, StateOpen, b.State())

	now = now.Add(31 * time.Second)
	_, err := b.Describe(context.Background(), nil, "", "")
	require.Error(t, err)
	assert.Equal(t, StateOpen, b.State(), "failed trial reopens")

	now = now.Add(31 * time.Second)
	fail = false
	text, err := b.Describe(context.Background(), nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b := NewBreaker(DescriberFunc(func(ctx context.Context, _ []byte, _, _ string) (string, error) {
		return "", ctx.Err()
	}), 1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Describe(ctx, nil, "", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenAdmitsSingleTrial(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	failing := true
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	b := NewBreaker(DescriberFunc(func(context.Context, []byte, string, string) (string, error) {
		mu.Lock()
		f := failing
		mu.Unlock()
		if f {
			return "", errors.New("down")
		}
		entered <- struct{}{}
		<-release
		return "ok", nil
	}), 1, 30*time.Second)
	b.now = func() time.Time { return now }

	_, _ = b.Describe(context.Background(), nil, "", "")
	require.Equal(t, StateOpen, b.State())

	now = now.Add(31 * time.Second)
	mu.Lock()
	failing = false
	mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := b.Describe(context.Background(), nil, "", "")
		done <- err
	}()
	<-entered
	assert.Equal(t, StateHalfOpen, b.State())

	_, err := b.Describe(context.Background(), nil, "", "")
	assert.ErrorIs(t, err, ErrCircuitOpen, "second caller while the trial runs")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerCancelledTrialFreesSlot(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	b := NewBreaker(DescriberFunc(func(ctx context.Context, _ []byte, _, _ string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("down")
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "ok", nil
	}), 1, 30*time.Second)
	b.now = func() time.Time { return now }

	_, _ = b.Describe(context.Background(), nil, "", "")
	now = now.Add(31 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Describe(ctx, nil, "", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateHalfOpen, b.State())

	text, err := b.Describe(context.Background(), nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, StateClosed, b.State())
}
