package whatsapp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Webhook: inbound manager replies forwarded by the gateway
// =============================================================================

var (
	// ErrMissingPhone payload without phoneNumber
	ErrMissingPhone = errors.New("phoneNumber is required")
	// ErrUndecidable payload carries neither approved nor a recognisable yes/no text
	ErrUndecidable = errors.New("reply is neither approve nor reject")
)

// ApprovalReply normalised inbound reply
type ApprovalReply struct {
	PhoneNumber string
	Approved    bool
	Timestamp   *time.Time
}

type approvalReplyPayload struct {
	PhoneNumber string          `json:"phoneNumber"`
	Approved    *bool           `json:"approved"`
	Message     string          `json:"message"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// ParseApprovalReply decodes {phoneNumber, approved, timestamp?}. When approved is
// absent the free-text message field is interpreted (SIM/NÃO).
func ParseApprovalReply(body []byte) (*ApprovalReply, error) {
	var p approvalReplyPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode reply payload: %w", err)
	}
	if strings.TrimSpace(p.PhoneNumber) == "" {
		return nil, ErrMissingPhone
	}

	reply := &ApprovalReply{PhoneNumber: p.PhoneNumber}
	if p.Approved != nil {
		reply.Approved = *p.Approved
	} else {
		approved, ok := ParseDecisionText(p.Message)
		if !ok {
			return nil, ErrUndecidable
		}
		reply.Approved = approved
	}

	ts, err := parseTimestamp(p.Timestamp)
	if err != nil {
		return nil, err
	}
	reply.Timestamp = ts
	return reply, nil
}

// ParseDecisionText maps a manager's free-text answer to approve/reject
func ParseDecisionText(text string) (approved bool, ok bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, ".!")
	switch t {
	case "sim", "s", "yes", "y", "1", "aprovar", "aprovado", "ok":
		return true, true
	case "não", "nao", "n", "no", "2", "rejeitar", "rejeitado":
		return false, true
	}
	return false, false
}

// parseTimestamp accepts unix seconds, unix milliseconds or an RFC3339 string
func parseTimestamp(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode timestamp: %w", err)
		}
		if s == "" {
			return nil, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			t := fromUnix(n)
			return &t, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		return &t, nil
	}

	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %s: %w", raw, err)
	}
	t := fromUnix(n)
	return &t, nil
}

// values past year 2286 in seconds are treated as milliseconds
func fromUnix(n int64) time.Time {
	if n > 1e10 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
