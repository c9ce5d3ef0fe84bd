package chatbot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main keyboard labels
const (
	ButtonWeather      = "weather"
	ButtonRandomJoke   = "get random joke"
	ButtonRegister     = "register"
	ButtonCheckMyData  = "check my data"
	ButtonDeleteMyData = "delete my data"
)

// KeyboardBuilder provides utilities for creating keyboards and menus
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder instance
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// BuildMainKeyboard creates the persistent reply keyboard shown after /start
func (kb *KeyboardBuilder) BuildMainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonWeather),
			tgbotapi.NewKeyboardButton(ButtonRandomJoke),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonRegister),
			tgbotapi.NewKeyboardButton(ButtonCheckMyData),
			tgbotapi.NewKeyboardButton(ButtonDeleteMyData),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// BuildConfirmationKeyboard creates a single Yes/No inline row
func (kb *KeyboardBuilder) BuildConfirmationKeyboard(yesData, noData string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(confirmationYesLabel, yesData),
			tgbotapi.NewInlineKeyboardButtonData(confirmationNoLabel, noData),
		),
	)
}

// BuildCommandMenu lists the commands advertised in the client menu
func (kb *KeyboardBuilder) BuildCommandMenu() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		menuEntry(CommandStart, "Get a welcome message"),
		menuEntry(CommandMyData, "Get your data stored"),
		menuEntry(CommandDeleteData, "Delete my data"),
		menuEntry(CommandHelp, "Info about how to use this bot"),
		menuEntry(CommandSettings, "Set new preferences"),
	}
}

// the Bot API wants menu commands without the leading slash
func menuEntry(cmd Command, description string) tgbotapi.BotCommand {
	return tgbotapi.BotCommand{
		Command:     strings.TrimPrefix(string(cmd), "/"),
		Description: description,
	}
}
