package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidPhone phone could not be normalised to a mobile number
var ErrInvalidPhone = errors.New("invalid phone number")

// =============================================================================
// Client: messaging gateway HTTP client
// The gateway owns the WhatsApp session; this side only posts text messages.
// =============================================================================

// Client gateway client
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a gateway client. timeout <= 0 uses 30s.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendTextRequest gateway send-text body
type SendTextRequest struct {
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
}

// SendTextResponse gateway send-text reply
type SendTextResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"`
}

// Send posts a text message to a phone. reference correlates the message with
// a checklist code on the gateway side.
func (c *Client) Send(ctx context.Context, phone, message, reference string) error {
	local := NormalizePhone(phone)
	if !IsValidLocalPhone(local) {
		return fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}

	body := SendTextRequest{
		Phone:     InternationalPhone(local),
		Message:   message,
		Reference: reference,
	}

	var result SendTextResponse
	if err := c.doRequest(ctx, http.MethodPost, "/send-text", body, &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("gateway rejected message to %s: %s", local, result.Message)
	}
	return nil
}

// doRequest executes a gateway API call and decodes the JSON reply into result
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway error[%d]: %s (path=%s)", resp.StatusCode, strings.TrimSpace(string(respBody)), path)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}
