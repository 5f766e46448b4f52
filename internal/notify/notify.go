// Package notify delivers operator notifications. Sends are fire-and-forget:
// a delivery failure is logged and swallowed, never propagated into the
// scheduling path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Sink receives operator-facing text messages.
type Sink interface {
	Send(ctx context.Context, text string)
}

// Nop discards every message. Used when no Telegram credentials are set.
type Nop struct{}

func (Nop) Send(context.Context, string) {}

const telegramBaseURL = "https://api.telegram.org"

// Telegram posts messages to a Telegram chat via the bot API.
type Telegram struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewTelegram creates a Telegram sink. baseURL may be empty outside tests.
func NewTelegram(token, chatID, baseURL string) *Telegram {
	if baseURL == "" {
		baseURL = telegramBaseURL
	}
	return &Telegram{
		token:      token,
		chatID:     chatID,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Send(ctx context.Context, text string) {
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		log.Printf("notify: marshal message: %v", err)
		return
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		log.Printf("notify: build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := t.httpClient.Do(req)
	if err != nil {
		log.Printf("notify: send telegram message: %v", err)
		return
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		log.Printf("notify: telegram rejected message: status %d: %s", res.StatusCode, body)
	}
}
