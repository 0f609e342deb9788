package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Sender delivers one rendered message to one destination phone number.
// Implementations wrap WhatsApp-style provider APIs; a returned error
// means the provider rejected or failed the send.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// HTTPSender posts messages to a WhatsApp gateway API.
type HTTPSender struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPSender(baseURL, token string) *HTTPSender {
	return &HTTPSender{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(map[string]string{
		"to":      to,
		"message": text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// SimulatedSender succeeds with the configured probability. Used in dev
// and by the seeder when no gateway is configured.
type SimulatedSender struct {
	SuccessRate float64
}

func NewSimulatedSender() *SimulatedSender {
	return &SimulatedSender{SuccessRate: 0.9}
}

func (s *SimulatedSender) Send(ctx context.Context, to, text string) error {
	if rand.Float64() < s.SuccessRate {
		return nil
	}
	return fmt.Errorf("simulated send failure to %s", to)
}

var (
	_ Sender = (*HTTPSender)(nil)
	_ Sender = (*SimulatedSender)(nil)
)
