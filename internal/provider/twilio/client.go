// Package twilio sends SMS through the Twilio Messages REST resource.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/dispatch"
	"github.com/ninjamovesonly/bulk-notifications-prototype/pkg/httpretry"
)

type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	httpClient httpretry.Doer
}

func New(baseURL, accountSID, authToken string, doer httpretry.Doer) *Client {
	if doer == nil {
		doer = httpretry.New("twilio", nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		httpClient: doer,
	}
}

func (c *Client) Name() string { return "twilio" }

func (c *Client) CheckConfig() error {
	if c.accountSID == "" || c.authToken == "" {
		return errors.New("SMS provider credentials (account SID and auth token) are not configured on the server")
	}
	return nil
}

type messageResponse struct {
	SID string `json:"sid"`
}

type errorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// Send creates one message and returns its SID.
func (c *Client) Send(ctx context.Context, msg dispatch.SMSMessage) (string, error) {
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("Body", msg.Body)
	if msg.MessagingServiceID != "" {
		form.Set("MessagingServiceSid", msg.MessagingServiceID)
	} else {
		form.Set("From", msg.From)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pe := &dispatch.ProviderError{Status: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			pe.Code = er.Code
			pe.Message = er.Message
		}
		if pe.Message == "" {
			pe.Message = strings.TrimSpace(string(body))
		}
		return "", pe
	}

	var mr messageResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return mr.SID, nil
}
