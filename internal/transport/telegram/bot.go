// Package telegram is the chat front-end. Commands map 1:1 onto admission
// operations; free-text messages are treated as IMEI submissions.
package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"imeigate/internal/imeicheck"
	"imeigate/internal/membership/models"
)

// Service defines the admission operations the bot consumes. Mutating and
// list commands go through the caller-gated variants so admin checks stay in
// the service, not in the transport.
type Service interface {
	IsAuthorized(ctx context.Context, telegramID int64) (bool, error)
	AddToWhitelistAs(ctx context.Context, callerID, telegramID int64, username string) (*models.User, error)
	RemoveFromWhitelistAs(ctx context.Context, callerID, telegramID int64) (*models.User, error)
	PromoteToAdminAs(ctx context.Context, callerID, telegramID int64, username string) (*models.Admin, error)
	ListWhitelistedAs(ctx context.Context, callerID int64) ([]*models.User, error)
	ListAdminsAs(ctx context.Context, callerID int64) ([]*models.Admin, error)
}

// Bot polls Telegram for updates and answers in plain text, with HTML markup
// for device reports.
type Bot struct {
	api       *tgbotapi.BotAPI
	admission Service
	verifier  imeicheck.Client
	retry     imeicheck.RetryPolicy
	serviceID int
	logger    *slog.Logger
}

type Option func(b *Bot)

func WithRetryPolicy(p imeicheck.RetryPolicy) Option {
	return func(b *Bot) {
		b.retry = p
	}
}

func WithServiceID(id int) Option {
	return func(b *Bot) {
		b.serviceID = id
	}
}

func New(token string, admission Service, verifier imeicheck.Client, logger *slog.Logger, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		api:       api,
		admission: admission,
		verifier:  verifier,
		retry:     imeicheck.RetryPolicy{Attempts: 3},
		serviceID: 15,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	b.logger.InfoContext(ctx, "bot is polling", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.handleUpdate(ctx, update.Message)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, msg *tgbotapi.Message) {
	callerID := msg.From.ID

	var reply reply
	if msg.IsCommand() {
		reply = b.respondToCommand(ctx, callerID, msg.Command(), commandArgs(msg))
	} else {
		reply = b.respondToMessage(ctx, callerID, msg.Text)
	}
	if reply.text == "" {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply.text)
	if reply.html {
		out.ParseMode = tgbotapi.ModeHTML
	}
	if _, err := b.api.Send(out); err != nil {
		b.logger.ErrorContext(ctx, "failed to send reply",
			"chat_id", msg.Chat.ID,
			"error", err,
		)
	}
}
