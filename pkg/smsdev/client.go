package smsdev

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Situational codes returned by the SMS API.
const (
	SituationOK        = "OK"
	SituationQueued    = "FILA"
	SituationSent      = "ENVIADA"
	SituationDelivered = "ENTREGUE"
	SituationError     = "ERRO"
	SituationBlocked   = "BLOQUEADO"
)

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// SendResponse is the synchronous acknowledgement of a send call.
type SendResponse struct {
	Situacao  string `json:"situacao"`
	Codigo    string `json:"codigo"`
	ID        string `json:"id"`
	Descricao string `json:"descricao"`
}

// StatusResponse is the status-lookup payload for a previously sent message.
type StatusResponse struct {
	Situacao  string `json:"situacao"`
	ID        string `json:"id"`
	Descricao string `json:"descricao"`
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Send submits one SMS. The destination is normalized to the national format
// and the message is URL-encoded into the query string, which is how this
// API takes its payload.
func (c *Client) Send(ctx context.Context, phone, message string) (*SendResponse, error) {
	number, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("type", "9")
	params.Set("number", number)
	params.Set("msg", message)

	endpoint := fmt.Sprintf("%s/v1/send?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result SendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetStatus queries the provider's delivery state for a message id.
func (c *Client) GetStatus(ctx context.Context, id string) (*StatusResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("action", "status")
	params.Set("id", id)

	endpoint := fmt.Sprintf("%s/v1/dlr?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status lookup failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result StatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// NormalizePhone converts a stored number into the 11-digit national mobile
// format: country code stripped, the leading 9 re-added when a legacy
// 10-digit number is missing it.
func NormalizePhone(phone string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()

	if strings.HasPrefix(number, "55") && len(number) > 11 {
		number = number[2:]
	}

	if len(number) == 10 {
		// DDD plus 8 digits: an old-format mobile missing the 9 prefix.
		number = number[:2] + "9" + number[2:]
	}

	if len(number) != 11 {
		return "", fmt.Errorf("invalid phone number: %q", phone)
	}

	return number, nil
}
