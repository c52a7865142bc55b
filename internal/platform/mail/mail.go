// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail delivers transactional messages (password reset links, account
recovery links and one-time codes).

Mailers:

  - HTTPMailer: posts a JSON message to a transactional mail API.
  - LogMailer: writes the message to the structured log. Used in development
    and whenever no mail API is configured.
*/
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// Message is a single outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"text"`
}

// Mailer sends a message or reports why it could not.
type Mailer interface {
	Send(ctx context.Context, message Message) error
}

// # HTTP Mailer

// HTTPMailer sends mail through a JSON HTTP API.
type HTTPMailer struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewHTTPMailer returns a mailer posting to baseURL with apiKey as bearer.
func NewHTTPMailer(apiKey, baseURL, sender string) *HTTPMailer {
	return &HTTPMailer{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type httpPayload struct {
	From string `json:"from"`
	Message
}

// Send posts message. It never logs the body, which may carry a code or link.
func (mailer *HTTPMailer) Send(ctx context.Context, message Message) error {
	if mailer.APIKey == "" {
		return fmt.Errorf("mail: API key not configured")
	}

	raw, err := json.Marshal(httpPayload{From: mailer.Sender, Message: message})
	if err != nil {
		return fmt.Errorf("mail: encode failed: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, mailer.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("mail: build request failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+mailer.APIKey)

	response, err := mailer.HTTPClient.Do(request)
	if err != nil {
		return fmt.Errorf("mail: request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("mail: request failed status=%d body=%s", response.StatusCode, string(body))
	}

	return nil
}

// # Log Mailer

// LogMailer writes messages to a logger instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a mailer logging through logger.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs message at info level.
func (mailer *LogMailer) Send(ctx context.Context, message Message) error {
	mailer.logger.InfoContext(ctx, "mail_logged",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("body", message.Body),
	)
	return nil
}
