// Package vision talks to hosted vision-language models that describe an
// image in response to a prompt.
package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxImageBytes caps downloads and request payloads.
const MaxImageBytes = 10 << 20

// maxResponseBytes caps model responses.
const maxResponseBytes = 1 << 20

// ErrEmptyResponse is returned when the model answered without any text.
var ErrEmptyResponse = errors.New("vision: empty response from model")

// Describer returns the raw model text for an image and prompt.
type Describer interface {
	Describe(ctx context.Context, image []byte, mime, prompt string) (string, error)
}

// DescriberFunc adapts a function to Describer.
type DescriberFunc func(ctx context.Context, image []byte, mime, prompt string) (string, error)

func (f DescriberFunc) Describe(ctx context.Context, image []byte, mime, prompt string) (string, error) {
	return f(ctx, image, mime, prompt)
}

// Fetch downloads an image. A nil client uses http.DefaultClient.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

// excerpt trims an error body for inclusion in an error message.
func excerpt(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
