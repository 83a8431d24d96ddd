// Package renderer calls the PDF rendering service.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mseller-cloud/mseller-server/internal/config"
)

// Client renders document payloads into PDF bytes
type Client struct {
	cfg        *config.RendererConfig
	httpClient *http.Client
}

// NewClient creates a renderer client
func NewClient(cfg *config.RendererConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Render posts a template name and payload, returning the PDF bytes
func (c *Client) Render(ctx context.Context, template string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(map[string]interface{}{
		"template": template,
		"data":     payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", template, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer status %d", resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered document: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("renderer returned empty document")
	}

	return pdf, nil
}
