package chatbot

import (
	"announcebot-api/internal/common"
)

// UpdateKind tags which branch of an Update is populated
type UpdateKind int

const (
	UpdateUnknown UpdateKind = iota
	UpdateMessage
	UpdateCallback
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateMessage:
		return "message"
	case UpdateCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Message is an inbound text message
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
	From      common.DisplayFields
}

// Callback is an inline-button press on a message the bot sent earlier
type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	Data      string
}

// Update is one inbound event. Exactly one of Message or Callback is set
// unless Kind is UpdateUnknown.
type Update struct {
	ID       int
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

// ChatID returns the chat the update belongs to, or 0 for unknown updates
func (u Update) ChatID() int64 {
	switch {
	case u.Kind == UpdateMessage && u.Message != nil:
		return u.Message.ChatID
	case u.Kind == UpdateCallback && u.Callback != nil:
		return u.Callback.ChatID
	default:
		return 0
	}
}

// Command is a slash command matched verbatim against message text
type Command string

const (
	CommandStart      Command = "/start"
	CommandHelp       Command = "/help"
	CommandMyData     Command = "/mydata"
	CommandDeleteData Command = "/deletedata"
	CommandRegister   Command = "/register"
	CommandSend       Command = "/send"
	CommandSettings   Command = "/settings"
)

// ReplyKind selects how the router delivers a Reply
type ReplyKind int

const (
	ReplyNone ReplyKind = iota
	ReplyPlain
	ReplyWithMainKeyboard
	ReplyConfirmation
)

// Reply is what a command handler wants sent back to the chat
type Reply struct {
	Kind ReplyKind
	Text string
}

// Callback payloads carried by the confirmation buttons
const (
	CallbackYes = "YES_BUTTON"
	CallbackNo  = "NO_BUTTON"
)

// Fixed bot texts
const (
	HelpText = "This bot is to created to demonstrate Spring capabilities.\n" +
		"You can execute from the main menu on the left or by typing a command.\n" +
		"Type /start to see a welcome message.\n" +
		"Type /mydata to see data stored about yourself.\n" +
		"Type /help to see this message again.\n"

	UnknownCommandText   = "Sorry command was not recognize"
	DataDeletedText      = "Your data delete"
	RegisterPromptText   = "Do you really want to register"
	PressedYesText       = "You pressed YES button"
	PressedNoText        = "You pressed NO button"
	PromptExpiredText    = "This prompt has expired"
	SendUsageText        = "Usage: /send <text to broadcast>"
	CommandFailedText    = "Something went wrong, please try again later"
	greetingEmoji        = ":blush:"
	confirmationYesLabel = "Yes"
	confirmationNoLabel  = "No"
)
