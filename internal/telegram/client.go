// Package telegram sends alerts to a Telegram chat and accepts slash
// commands from it.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// DefaultPollTimeout is the getUpdates long-poll wait in seconds. It must stay
// below the HTTP client timeout.
const DefaultPollTimeout = 60

// ErrMissingCredentials is returned by NewClient without a token or chat ID.
var ErrMissingCredentials = errors.New("telegram: bot token and chat ID are required")

// Options configures a Client.
type Options struct {
	Token   string
	ChatID  string
	BaseURL string
	Timeout time.Duration
	// PollTimeout is the long-poll wait for getUpdates, in seconds.
	// Zero uses DefaultPollTimeout.
	PollTimeout int
}

// Client talks to one bot and one authorized chat.
type Client struct {
	token       string
	chatID      string
	baseURL     string
	pollTimeout int
	http        *http.Client
	limiter     *rate.Limiter
	log         zerolog.Logger
}

// NewClient validates opts and returns a client.
func NewClient(opts Options, log zerolog.Logger) (*Client, error) {
	if opts.Token == "" || opts.ChatID == "" {
		return nil, ErrMissingCredentials
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 75 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}

	return &Client{
		token:       opts.Token,
		chatID:      opts.ChatID,
		baseURL:     opts.BaseURL,
		pollTimeout: opts.PollTimeout,
		http:        &http.Client{Timeout: opts.Timeout},
		// Telegram throttles bots that post more than about one message a second to a chat.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		log:     log.With().Str("component", "telegram").Logger(),
	}, nil
}

type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// Notify sends a Markdown message to the configured chat.
func (c *Client) Notify(ctx context.Context, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := map[string]string{
		"chat_id":    c.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	c.log.Debug().Str("text", text).Msg("Telegram notify")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	if err != nil {
		return fmt.Errorf("telegram alert failed: %w", err)
	}
	return nil
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response (status %s): %w", resp.Status, err)
	}
	if !out.Ok {
		return nil, fmt.Errorf("api error: %s (code: %d)", out.Description, out.ErrorCode)
	}
	return out.Result, nil
}
