// Package tg adapts the Telegram Bot API into the narrow channel surface
// the rest of the system uses: send, edit-by-message-id, callback answers
// and document upload. Edits go through the delivery guard in guard.go.
package tg

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client wraps the bot API connection.
type Client struct {
	api *tgbotapi.BotAPI
}

// New authorizes against the Bot API.
func New(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// Updates starts long polling and returns the inbound update channel.
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return c.api.GetUpdatesChan(u)
}

// Stop terminates long polling.
func (c *Client) Stop() {
	c.api.StopReceivingUpdates()
}

// Send delivers an HTML message and returns the new message id.
func (c *Client) Send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Reply sends a message quoting another one (used for staff prompts).
func (c *Client) Reply(chatID int64, replyTo int, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SendDocument uploads a file (the delivered-order receipt) as a document.
func (c *Client) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	_, err := c.api.Send(doc)
	return err
}

// AnswerCallback acknowledges a callback query, optionally as an alert.
func (c *Client) AnswerCallback(callbackID, text string, alert bool) {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := c.api.Request(cb); err != nil {
		log.Println("Answer callback error:", err)
	}
}
