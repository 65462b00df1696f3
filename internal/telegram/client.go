package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pbx-notifier/internal/calls"
)

// ErrChannelRejected means the delivery channel refused a send. The
// pipeline retries audio-bearing messages once as text-only before treating
// this as fatal for the batch.
var ErrChannelRejected = errors.New("telegram: channel rejected send")

// Client delivers notifications to a single Telegram channel.
type Client struct {
	bot       *tgbotapi.BotAPI
	channelID int64
}

func NewClient(token string, channelID int64) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot init: %w", err)
	}
	return &Client{bot: bot, channelID: channelID}, nil
}

// NewClientWithEndpoint builds a client against a non-default Bot API
// endpoint. Used by tests.
func NewClientWithEndpoint(token, endpoint string, channelID int64) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot init: %w", err)
	}
	return &Client{bot: bot, channelID: channelID}, nil
}

// SendText posts a text-only notification to the channel.
func (c *Client) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(c.channelID, text)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelRejected, err)
	}
	return nil
}

// SendAudio posts the notification text as the caption of an audio
// attachment.
func (c *Client) SendAudio(ctx context.Context, text string, asset calls.RecordingAsset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := asset.FileName
	if name == "" {
		name = "recording.mp3"
	}
	audio := tgbotapi.NewAudio(c.channelID, tgbotapi.FileBytes{
		Name:  name,
		Bytes: asset.Data,
	})
	audio.Caption = text

	if _, err := c.bot.Send(audio); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelRejected, err)
	}
	return nil
}
