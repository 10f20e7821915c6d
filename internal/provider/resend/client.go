// Package resend is a client for the Resend batch email endpoint.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/dispatch"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/httpretry"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/logx"
)

// MaxBatch is the largest number of messages the batch endpoint accepts.
const MaxBatch = 100

type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.Doer
}

func New(baseURL, apiKey string, doer httpretry.Doer) *Client {
	if doer == nil {
		doer = httpretry.New("resend", nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: doer,
	}
}

func (c *Client) Name() string { return "resend" }

func (c *Client) MaxBatch() int { return MaxBatch }

func (c *Client) CheckConfig() error {
	if c.apiKey == "" {
		return errors.New("Email provider API key is not configured on the server")
	}
	return nil
}

type email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html"`
}

type batchResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// SendBatch posts one message per recipient in a single request, so
// recipients never see each other's addresses.
func (c *Client) SendBatch(ctx context.Context, batch dispatch.EmailBatch) ([]string, error) {
	payload := make([]email, len(batch.To))
	for i, to := range batch.To {
		payload[i] = email{
			From:    batch.From,
			To:      []string{to},
			Subject: batch.Subject,
			Text:    batch.Text,
			HTML:    batch.HTML,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	// Retries of this request carry the same key and are not delivered twice.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pe := &dispatch.ProviderError{Status: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Message != "" {
			pe.Message = er.Message
		} else {
			pe.Message = strings.TrimSpace(string(respBody))
		}
		return nil, pe
	}

	var br batchResponse
	if err := json.Unmarshal(respBody, &br); err != nil {
		// the batch was accepted; only the ids are lost
		logx.L().Warnw("resend_response_unreadable",
			"status", resp.StatusCode,
			"count", len(batch.To),
			"error", err,
		)
		return nil, nil
	}
	ids := make([]string, 0, len(br.Data))
	for _, d := range br.Data {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
