// Package whatsapp sends templated messages through the Meta Graph API
// and models the inbound webhook payloads.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Credentials selects a phone number and its bearer token
type Credentials struct {
	Token         string
	PhoneNumberID string
}

// Client talks to the Graph API messages endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Graph API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendTemplate sends a templated message
func (c *Client) SendTemplate(ctx context.Context, creds Credentials, msg *TemplateMessage) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                msg.To,
		"type":              "template",
		"template":          msg.Template(),
	}
	return c.post(ctx, creds, payload)
}

// SendText sends a plain text message
func (c *Client) SendText(ctx context.Context, creds Credentials, to, body string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]interface{}{
			"preview_url": false,
			"body":        body,
		},
	}
	return c.post(ctx, creds, payload)
}

func (c *Client) post(ctx context.Context, creds Credentials, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().
			Int("status", resp.StatusCode).
			Str("response", string(respBody)).
			Msg("WhatsApp message rejected")
		return fmt.Errorf("whatsapp API status %d", resp.StatusCode)
	}

	return nil
}
