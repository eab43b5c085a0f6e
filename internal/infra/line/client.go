// Package line delivers push messages through the LINE Messaging API multicast endpoint.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"course_followup_service/internal/domain/push"
)

const (
	multicastPath         = "/v2/bot/message/multicast"
	defaultMaxRecipients  = 500
	defaultRequestTimeout = 15 * time.Second
)

type multicastRequest struct {
	To       []string       `json:"to"`
	Messages []push.Message `json:"messages"`
}

type apiError struct {
	Message string `json:"message"`
}

// Client implements push.Gateway. Recipient lists above maxRecipients are
// split into consecutive requests; the call fails on the first failed chunk.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	maxRecipients int
	logger        *logrus.Entry
}

func NewClient(baseURL, token string, maxRecipients int, logger *logrus.Entry) *Client {
	if maxRecipients <= 0 {
		maxRecipients = defaultMaxRecipients
	}
	return &Client{
		httpClient:    &http.Client{Timeout: defaultRequestTimeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		maxRecipients: maxRecipients,
		logger:        logger.WithField("component", "line_client"),
	}
}

func (c *Client) Multicast(ctx context.Context, recipients []string, msg push.Message) error {
	for start := 0; start < len(recipients); start += c.maxRecipients {
		end := start + c.maxRecipients
		if end > len(recipients) {
			end = len(recipients)
		}
		if err := c.send(ctx, recipients[start:end], msg); err != nil {
			if start > 0 {
				return fmt.Errorf("multicast chunk %d-%d (earlier chunks delivered): %w", start, end, err)
			}
			return err
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, to []string, msg push.Message) error {
	body, err := json.Marshal(multicastRequest{To: to, Messages: []push.Message{msg}})
	if err != nil {
		return fmt.Errorf("failed to encode multicast request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+multicastPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build multicast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("multicast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.WithField("recipients", len(to)).Debug("Multicast accepted")
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var apiErr apiError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("line api returned %d: %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("line api returned %d", resp.StatusCode)
}
