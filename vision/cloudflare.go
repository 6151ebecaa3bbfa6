package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultCloudflareModel is the Workers AI model used when none is configured.
const DefaultCloudflareModel = "@cf/llava-hf/llava-1.5-7b-hf"

const cloudflareBaseURL = "https://api.cloudflare.com/client/v4"

// Cloudflare calls a Workers AI image-to-text model.
type Cloudflare struct {
	AccountID string
	Token     string
	Model     string
	// BaseURL overrides the API root, mainly for tests.
	BaseURL string
	Client  *http.Client
}

// NewCloudflare returns a client with a 60 second timeout.
func NewCloudflare(accountID, token, model string) *Cloudflare {
	if model == "" {
		model = DefaultCloudflareModel
	}
	return &Cloudflare{
		AccountID: accountID,
		Token:     token,
		Model:     model,
		BaseURL:   cloudflareBaseURL,
		Client:    &http.Client{Timeout: 60 * time.Second},
	}
}

type cloudflareRequest struct {
	Prompt string `json:"prompt"`
	Image  []int  `json:"image"`
}

type cloudflareResponse struct {
	Result struct {
		Description string `json:"description"`
	} `json:"result"`
	Success bool `json:"success"`
}

// Endpoint is the model run URL.
func (c *Cloudflare) Endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = cloudflareBaseURL
	}
	return fmt.Sprintf("%s/accounts/%s/ai/run/%s", strings.TrimRight(base, "/"), c.AccountID, c.Model)
}

// Describe sends the image as a byte array alongside the prompt.
func (c *Cloudflare) Describe(ctx context.Context, image []byte, _ string, prompt string) (string, error) {
	pixels := make([]int, len(image))
	for i, b := range image {
		pixels[i] = int(b)
	}
	body, err := json.Marshal(cloudflareRequest{Prompt: prompt, Image: pixels})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudflare request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("cloudflare API failed: status %d: %s", resp.StatusCode, excerpt(resp.Body))
	}

	var out cloudflareResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode cloudflare response: %w", err)
	}
	text := strings.TrimSpace(out.Result.Description)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
