package chatbot

import (
	"encoding/json"
	"fmt"

	"announcebot-api/internal/common"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookParser turns raw Bot API updates into domain Updates
type WebhookParser struct{}

// NewWebhookParser creates a new WebhookParser instance
func NewWebhookParser() *WebhookParser {
	return &WebhookParser{}
}

// ParseUpdate unmarshals webhook data into a Telegram Update struct
func (p *WebhookParser) ParseUpdate(updateData []byte) (*tgbotapi.Update, error) {
	if len(updateData) == 0 {
		return nil, WebhookParsingError{Details: "empty update data"}
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(updateData, &update); err != nil {
		return nil, WrapParsingError(err, "failed to unmarshal update data")
	}

	if update.UpdateID == 0 {
		return nil, WebhookParsingError{Details: "missing update ID"}
	}

	return &update, nil
}

// Classify maps a Bot API update onto the Message or Callback branch.
// Anything else (edited messages, channel posts, media without text,
// callbacks on inline-mode messages) comes back as UpdateUnknown.
func (p *WebhookParser) Classify(update *tgbotapi.Update) Update {
	if update == nil {
		return Update{Kind: UpdateUnknown}
	}

	result := Update{ID: update.UpdateID, Kind: UpdateUnknown}

	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil || msg.Text == "" {
			return result
		}
		result.Kind = UpdateMessage
		result.Message = &Message{
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Text:      msg.Text,
			From:      senderFields(msg),
		}

	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if query.Message == nil || query.Message.Chat == nil {
			return result
		}
		result.Kind = UpdateCallback
		result.Callback = &Callback{
			ID:        query.ID,
			ChatID:    query.Message.Chat.ID,
			MessageID: query.Message.MessageID,
			Data:      query.Data,
		}
	}

	return result
}

// senderFields prefers the chat's names and falls back to the sender's
// account for group chats, which carry only a title.
func senderFields(msg *tgbotapi.Message) common.DisplayFields {
	fields := common.DisplayFields{
		FirstName: msg.Chat.FirstName,
		LastName:  msg.Chat.LastName,
		UserName:  msg.Chat.UserName,
	}
	if fields == (common.DisplayFields{}) && msg.From != nil {
		fields = common.DisplayFields{
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			UserName:  msg.From.UserName,
		}
	}
	return fields
}

// BuildCorrelationID derives a stable log correlation ID for an update
func (p *WebhookParser) BuildCorrelationID(update Update) string {
	switch update.Kind {
	case UpdateMessage:
		return fmt.Sprintf("msg_%d_%d", update.ID, update.Message.MessageID)
	case UpdateCallback:
		return fmt.Sprintf("cb_%d_%s", update.ID, update.Callback.ID)
	default:
		return fmt.Sprintf("upd_%d", update.ID)
	}
}
