package tg

import (
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// EditResult classifies the outcome of an in-place message edit so callers
// can degrade gracefully instead of branching on raw error text.
type EditResult int

const (
	// EditOK — the message was updated.
	EditOK EditResult = iota
	// EditStale — the new content equals the current content; the
	// message already shows the desired state.
	EditStale
	// EditMissing — the referenced message no longer exists (or cannot
	// be edited); the caller may send a fresh replacement.
	EditMissing
	// EditFailed — any other delivery failure; logged, never propagated.
	EditFailed
)

func classifyEditErr(err error) EditResult {
	if err == nil {
		return EditOK
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "message is not modified"):
		return EditStale
	case strings.Contains(msg, "message to edit not found"),
		strings.Contains(msg, "message can't be edited"),
		strings.Contains(msg, "chat not found"):
		return EditMissing
	default:
		return EditFailed
	}
}

// SafeEdit edits a message in place and classifies the outcome. Failures
// are logged with the affected order and audience and never returned as
// errors — the persisted order state is the durability boundary, message
// delivery is best-effort.
func (c *Client) SafeEdit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup, orderID int64, audience string) EditResult {
	var chattable tgbotapi.Chattable
	if markup != nil {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
		edit.ParseMode = tgbotapi.ModeHTML
		chattable = edit
	} else {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		chattable = edit
	}

	_, err := c.api.Send(chattable)
	res := classifyEditErr(err)
	if res == EditMissing || res == EditFailed {
		log.Printf("Edit of %s message for order %d failed: %v", audience, orderID, err)
	}
	return res
}
