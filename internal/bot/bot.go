// Package bot is the Telegram host: one wizard session per chat, driven by
// commands, plain text replies and inline buttons.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/natindo/poolmini/internal/models"
	"github.com/natindo/poolmini/internal/services"
	"github.com/natindo/poolmini/internal/wizard"
)

// API is the part of tgbotapi.BotAPI the handlers use.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service is what the bot needs from the persistence layer.
type Service interface {
	Finalize(ctx context.Context, kind wizard.Kind, owner services.Owner, data wizard.Fields) (models.Created, error)
	GetPool(ctx context.Context, id int64) (*models.PoolWithCount, error)
	ListPools(ctx context.Context, chatID int64) ([]models.Pool, error)
	DeletePool(ctx context.Context, chatID, id int64) error
	JoinPool(ctx context.Context, id int64, name string) (*models.PoolWithCount, error)
	GetGiveaway(ctx context.Context, id int64) (*models.Giveaway, int, error)
	ListGiveaways(ctx context.Context, chatID int64) ([]models.Giveaway, error)
	DeleteGiveaway(ctx context.Context, chatID, id int64) error
	EnterGiveaway(ctx context.Context, id int64, name string) (int, error)
}

var commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Start the bot"},
	{Command: "help", Description: "Help"},
	{Command: "newpool", Description: "Create a pool"},
	{Command: "newhostedpool", Description: "Create a hosted pool with payout"},
	{Command: "newgiveaway", Description: "Create a giveaway"},
	{Command: "back", Description: "Go back one step"},
	{Command: "cancel", Description: "Cancel the current wizard"},
	{Command: "list", Description: "Show your pools"},
	{Command: "giveaways", Description: "Show your giveaways"},
	{Command: "join", Description: "Join a pool: /join <id>"},
	{Command: "enter", Description: "Enter a giveaway: /enter <id>"},
	{Command: "delete", Description: "Delete a pool: /delete <id>"},
}

// chatSession is the wizard host of one chat. created is set by the
// completion hook. creator is whoever started the current session.
type chatSession struct {
	kind    wizard.Kind
	host    *wizard.Host
	creator string
	created *models.Created
}

type Bot struct {
	api    API
	tg     *tgbotapi.BotAPI
	svc    Service
	logger *zap.Logger
	loc    *time.Location

	mu    sync.Mutex
	chats map[int64]*chatSession
}

// NewBot connects to Telegram and registers the command menu.
func NewBot(token string, svc Service, logger *zap.Logger) (*Bot, error) {
	tg, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	tg.Debug = false

	if _, err := tg.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return nil, fmt.Errorf("set commands: %w", err)
	}
	logger.Info("bot initialized", zap.String("username", tg.Self.UserName))

	b := New(tg, svc, logger)
	b.tg = tg
	return b, nil
}

// New returns a bot that talks through api. Run needs a bot from NewBot.
func New(api API, svc Service, logger *zap.Logger) *Bot {
	return &Bot{
		api:    api,
		svc:    svc,
		logger: logger,
		loc:    time.UTC,
		chats:  make(map[int64]*chatSession),
	}
}

// Run reads updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.tg == nil {
		return fmt.Errorf("bot has no telegram connection")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleStepMessage(ctx, msg)
}

// Notify sends a plain message. It lets the reminder notifier use the bot.
func (b *Bot) Notify(_ context.Context, chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) session(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chats[chatID]
}

// openSession opens the kind wizard of chatID. An open session of the same
// kind is kept; resumed reports that case.
func (b *Bot) openSession(chatID int64, kind wizard.Kind, creator string) (cs *chatSession, resumed bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cs = b.chats[chatID]
	if cs != nil && cs.host.IsOpen() && cs.kind != kind {
		return cs, false, errOtherWizard
	}
	if cs == nil || cs.kind != kind {
		cs, err = b.newSession(chatID, kind)
		if err != nil {
			return nil, false, err
		}
		b.chats[chatID] = cs
	}
	resumed = cs.host.IsOpen()
	if !resumed {
		cs.creator = creator
	}
	cs.created = nil
	cs.host.Open()
	return cs, resumed, nil
}

func (b *Bot) newSession(chatID int64, kind wizard.Kind) (*chatSession, error) {
	def, ok := wizard.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", services.ErrUnknownKind, kind)
	}
	cs := &chatSession{kind: kind}
	cs.host = wizard.NewHost(def, wizard.Hooks{
		OnStepChange: func(step int, fragment *wizard.Fragment) {
			if fragment == nil {
				b.send(chatID, fmt.Sprintf("Back to step %d.", step))
			}
			b.sendPrompt(chatID, cs)
		},
		OnComplete: func(ctx context.Context, data wizard.Fields) error {
			b.mu.Lock()
			owner := services.Owner{ChatID: chatID, Name: cs.creator}
			b.mu.Unlock()
			created, err := b.svc.Finalize(ctx, kind, owner, data)
			if err != nil {
				return err
			}
			cs.created = &created
			return nil
		},
	})
	return cs, nil
}
