package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/natindo/poolmini/internal/models"
)

// Sender delivers a text message to a chat.
type Sender interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Notifier reminds pool creators shortly before registration opens.
type Notifier struct {
	store    Store
	sender   Sender
	interval time.Duration
	lead     time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewNotifier(store Store, sender Sender, interval, lead time.Duration, logger *zap.Logger) *Notifier {
	return &Notifier{
		store:    store,
		sender:   sender,
		interval: interval,
		lead:     lead,
		logger:   logger,
		now:      time.Now,
	}
}

// Run checks for due pools every interval until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := n.Tick(ctx); err != nil {
				n.logger.Error("notifier tick failed", zap.Error(err))
			}
		}
	}
}

// Tick sends every due reminder once and returns how many were sent.
func (n *Notifier) Tick(ctx context.Context) (int, error) {
	pools, err := n.store.PoolsToNotify(ctx, n.now(), n.lead)
	if err != nil {
		return 0, fmt.Errorf("find pools to notify: %w", err)
	}

	sent := 0
	for _, p := range pools {
		if err := n.sender.Notify(ctx, p.ChatID, reminderText(p, n.now())); err != nil {
			n.logger.Warn("reminder not delivered", zap.Int64("pool_id", p.ID), zap.Error(err))
			continue
		}
		if err := n.store.MarkPoolNotified(ctx, p.ID); err != nil {
			n.logger.Error("mark pool notified failed", zap.Int64("pool_id", p.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

func reminderText(p models.Pool, now time.Time) string {
	mins := int(p.RegistrationStart.Sub(now).Round(time.Minute).Minutes())
	startStr := p.RegistrationStart.Format("2006-01-02 15:04")
	endStr := "-"
	if p.RegistrationEnd != nil {
		endStr = p.RegistrationEnd.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("Reminder!\nRegistration for %q (ID=%d) opens in %d min.\nWindow: %s - %s",
		p.Name, p.ID, mins, startStr, endStr)
}
