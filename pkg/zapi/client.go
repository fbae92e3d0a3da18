package zapi

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

type ClientConfig struct {
	BaseURL     string
	InstanceID  string
	ClientToken string
	Timeout     time.Duration
}

// Client talks to the QR-paired WhatsApp gateway. The instance must be
// paired with a handset via the QR endpoint before sends go through.
type Client struct {
	baseURL     string
	instanceID  string
	clientToken string
	client      *http.Client
}

type SendResponse struct {
	ZaapID    string `json:"zaapId"`
	MessageID string `json:"messageId"`
	Error     string `json:"error,omitempty"`
}

type StatusResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type QRCodeResponse struct {
	Value     string `json:"value"`
	Connected bool   `json:"connected"`
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		instanceID:  cfg.InstanceID,
		clientToken: cfg.ClientToken,
		client:      &http.Client{Timeout: timeout},
	}
}

// SendText sends a direct text message through the paired instance.
func (c *Client) SendText(ctx context.Context, phone, message string) (*SendResponse, error) {
	payload := map[string]string{
		"phone":   phone,
		"message": message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/instances/%s/send-text", c.baseURL, c.instanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Token", c.clientToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result SendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("provider rejected message: %s", result.Error)
	}

	return &result, nil
}

// GetStatus queries delivery state for a previously sent message.
func (c *Client) GetStatus(ctx context.Context, messageID string) (*StatusResponse, error) {
	endpoint := fmt.Sprintf("%s/instances/%s/message-status/%s", c.baseURL, c.instanceID, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Client-Token", c.clientToken)

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

// QRCode fetches the current pairing code, or reports that the instance is
// already connected.
func (c *Client) QRCode(ctx context.Context) (*QRCodeResponse, error) {
	endpoint := fmt.Sprintf("%s/instances/%s/qr-code", c.baseURL, c.instanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Client-Token", c.clientToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qr code request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result QRCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
