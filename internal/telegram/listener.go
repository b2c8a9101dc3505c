package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Update represents a Telegram Update object (partial schema)
type Update struct {
	UpdateID int `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// CommandHandler processes one slash command and returns the reply.
type CommandHandler func(ctx context.Context, command string) string

// retryDelay is the pause after a failed poll.
var retryDelay = 5 * time.Second

// Listen long-polls for commands from the authorized chat and replies with
// the handler's output. Messages from other chats are logged and ignored.
// It blocks until ctx is cancelled.
func (c *Client) Listen(ctx context.Context, handler CommandHandler) error {
	authChatID, err := strconv.ParseInt(c.chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: chat ID must be numeric: %w", err)
	}

	offset := 0
	c.log.Info().Msg("Telegram listener started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := c.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn().Err(err).Msg("Telegram poll failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1

			if update.Message.Chat.ID != authChatID {
				c.log.Warn().
					Str("user", update.Message.From.Username).
					Int64("chat_id", update.Message.Chat.ID).
					Str("text", update.Message.Text).
					Msg("Unauthorized command ignored")
				continue
			}

			text := strings.TrimSpace(update.Message.Text)
			if !strings.HasPrefix(text, "/") {
				continue
			}
			c.log.Info().Str("command", text).Msg("Command received")
			if reply := handler(ctx, text); reply != "" {
				if err := c.Notify(ctx, reply); err != nil {
					c.log.Error().Err(err).Msg("Failed to send command reply")
				}
			}
		}
	}
}

func (c *Client) getUpdates(ctx context.Context, offset int) ([]Update, error) {
	url := fmt.Sprintf("%s?offset=%d&timeout=%d", c.endpoint("getUpdates"), offset, c.pollTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}
