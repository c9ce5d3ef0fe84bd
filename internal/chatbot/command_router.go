package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"announcebot-api/internal/broadcast"
	"announcebot-api/internal/common"
	"announcebot-api/internal/events"
	"announcebot-api/internal/user"

	"go.uber.org/zap"
)

// UserRegistry is the part of the user registry the router needs
type UserRegistry interface {
	Get(ctx context.Context, chatID int64) (*user.User, error)
	Register(ctx context.Context, chatID int64, fields common.DisplayFields) (bool, error)
	Unregister(ctx context.Context, chatID int64) error
	CanBroadcast(ctx context.Context, chatID int64) (bool, error)
}

// Broadcaster fans a text out to every registered user
type Broadcaster interface {
	SendToAll(ctx context.Context, text string) (broadcast.Result, error)
}

// commandHandler computes the reply for one command. It may touch the
// registry but never sends anything itself.
type commandHandler func(ctx context.Context, msg Message) handlerResult

type handlerResult struct {
	reply Reply
	// after runs once the reply was delivered, whatever the outcome
	after func(ctx context.Context)
}

// CommandRouter maps inbound text messages to replies
type CommandRouter struct {
	registry      UserRegistry
	broadcaster   Broadcaster
	sender        Sender
	confirmations *ConfirmationFlow
	eventBus      events.EventBus
	logger        *zap.Logger
	commands      map[Command]commandHandler

	// fan-outs started by /send, which run off the dispatcher worker
	inflight sync.WaitGroup
}

// NewCommandRouter creates a CommandRouter with the built-in command table
func NewCommandRouter(
	registry UserRegistry,
	broadcaster Broadcaster,
	sender Sender,
	confirmations *ConfirmationFlow,
	eventBus events.EventBus,
	logger *zap.Logger,
) *CommandRouter {
	r := &CommandRouter{
		registry:      registry,
		broadcaster:   broadcaster,
		sender:        sender,
		confirmations: confirmations,
		eventBus:      eventBus,
		logger:        logger,
	}
	r.commands = map[Command]commandHandler{
		CommandStart:      r.handleStart,
		CommandHelp:       r.handleHelp,
		CommandMyData:     r.handleMyData,
		CommandDeleteData: r.handleDeleteData,
		CommandRegister:   r.handleRegister,
	}
	return r
}

// Route handles one text message. Errors are logged, never returned.
func (r *CommandRouter) Route(ctx context.Context, msg Message) {
	if strings.Contains(msg.Text, string(CommandSend)) && r.handleSend(ctx, msg) {
		r.publishHandled(msg.ChatID, CommandSend)
		return
	}

	cmd := Command(msg.Text)
	handler, ok := r.commands[cmd]
	if !ok {
		handler = r.handleUnknown
		cmd = ""
	}

	result := handler(ctx, msg)
	r.deliver(ctx, msg.ChatID, result.reply)
	if result.after != nil {
		result.after(ctx)
	}

	r.publishHandled(msg.ChatID, cmd)
}

// handleSend broadcasts the text after the first space on its own goroutine,
// so the sender's shard keeps serving other chats. It reports false
// when the sender is not allowed to broadcast so the message falls through
// to the command table.
func (r *CommandRouter) handleSend(ctx context.Context, msg Message) bool {
	allowed, err := r.registry.CanBroadcast(ctx, msg.ChatID)
	if err != nil {
		r.logCommandError(CommandSend, msg.ChatID, "permission lookup failed", err)
		r.deliver(ctx, msg.ChatID, Reply{Kind: ReplyPlain, Text: CommandFailedText})
		return true
	}
	if !allowed {
		r.logger.Info("Broadcast attempt by unauthorized chat", zap.Int64("chat_id", msg.ChatID))
		return false
	}

	payload := sendPayload(msg.Text)
	if payload == "" {
		r.deliver(ctx, msg.ChatID, Reply{Kind: ReplyPlain, Text: SendUsageText})
		return true
	}

	text := ExpandEmoji(payload)
	fanOutCtx := context.WithoutCancel(ctx)
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		result, err := r.broadcaster.SendToAll(fanOutCtx, text)
		if err != nil {
			r.logCommandError(CommandSend, msg.ChatID, "broadcast failed", err)
			return
		}
		r.logger.Info("Chat broadcast finished",
			zap.Int64("chat_id", msg.ChatID),
			zap.Int("delivered", result.Delivered),
			zap.Int("failed", result.Failed))
	}()
	return true
}

// Wait blocks until every /send fan-out started so far has finished.
func (r *CommandRouter) Wait() {
	r.inflight.Wait()
}

// sendPayload returns the text after the first space, or "" when there is none
func sendPayload(text string) string {
	idx := strings.Index(text, " ")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx+1:])
}

func (r *CommandRouter) handleStart(_ context.Context, msg Message) handlerResult {
	greeting := fmt.Sprintf("Hi, %s, nice to meet you! %s", msg.From.Name(), ExpandEmoji(greetingEmoji))
	r.logger.Info("Replied to user",
		zap.Int64("chat_id", msg.ChatID),
		zap.String("user_name", msg.From.UserName))

	return handlerResult{
		reply: Reply{Kind: ReplyWithMainKeyboard, Text: greeting},
		after: func(ctx context.Context) {
			if _, err := r.registry.Register(ctx, msg.ChatID, msg.From); err != nil {
				r.logCommandError(CommandStart, msg.ChatID, "registration failed", err)
			}
		},
	}
}

func (r *CommandRouter) handleHelp(context.Context, Message) handlerResult {
	return handlerResult{reply: Reply{Kind: ReplyPlain, Text: HelpText}}
}

func (r *CommandRouter) handleMyData(ctx context.Context, msg Message) handlerResult {
	u, err := r.registry.Get(ctx, msg.ChatID)
	if errors.Is(err, user.ErrNotFound) {
		r.logger.Info("No data stored for chat", zap.Int64("chat_id", msg.ChatID))
		return handlerResult{reply: Reply{Kind: ReplyPlain}}
	}
	if err != nil {
		r.logCommandError(CommandMyData, msg.ChatID, "lookup failed", err)
		return handlerResult{reply: Reply{Kind: ReplyPlain, Text: CommandFailedText}}
	}

	return handlerResult{reply: Reply{Kind: ReplyPlain, Text: FormatUserData(u)}}
}

// FormatUserData renders the stored fields shown by /mydata
func FormatUserData(u *user.User) string {
	return fmt.Sprintf("%s , %s , %s , registered %s",
		u.UserName, u.FirstName, u.LastName, u.RegisteredAt.UTC().Format(time.RFC3339))
}

func (r *CommandRouter) handleDeleteData(ctx context.Context, msg Message) handlerResult {
	if err := r.registry.Unregister(ctx, msg.ChatID); err != nil {
		r.logCommandError(CommandDeleteData, msg.ChatID, "delete failed", err)
		return handlerResult{reply: Reply{Kind: ReplyPlain, Text: CommandFailedText}}
	}
	return handlerResult{reply: Reply{Kind: ReplyPlain, Text: DataDeletedText}}
}

func (r *CommandRouter) handleRegister(context.Context, Message) handlerResult {
	return handlerResult{reply: Reply{Kind: ReplyConfirmation, Text: RegisterPromptText}}
}

func (r *CommandRouter) handleUnknown(context.Context, Message) handlerResult {
	return handlerResult{reply: Reply{Kind: ReplyPlain, Text: UnknownCommandText}}
}

func (r *CommandRouter) deliver(ctx context.Context, chatID int64, reply Reply) {
	if reply.Kind == ReplyNone {
		return
	}
	if reply.Text == "" {
		r.logger.Debug("Empty reply not sent", zap.Int64("chat_id", chatID))
		return
	}

	// send failures are logged by the sender
	switch reply.Kind {
	case ReplyWithMainKeyboard:
		_ = r.sender.SendWithMainKeyboard(ctx, chatID, reply.Text)
	case ReplyConfirmation:
		_ = r.confirmations.Open(ctx, chatID, reply.Text)
	default:
		_ = r.sender.SendPlain(ctx, chatID, reply.Text)
	}
}

func (r *CommandRouter) logCommandError(cmd Command, chatID int64, reason string, err error) {
	r.logger.Error("Command failed",
		zap.Error(CommandProcessingError{Command: cmd, ChatID: chatID, Reason: reason, Cause: err}),
		zap.Int64("chat_id", chatID))
}

func (r *CommandRouter) publishHandled(chatID int64, cmd Command) {
	if r.eventBus == nil {
		return
	}
	err := r.eventBus.Publish(events.TopicCommandHandled, events.CommandHandled{
		Event:   events.NewEvent(),
		ChatID:  chatID,
		Command: string(cmd),
	})
	if err != nil {
		r.logger.Warn("Failed to publish event", zap.String("topic", events.TopicCommandHandled), zap.Error(err))
	}
}
