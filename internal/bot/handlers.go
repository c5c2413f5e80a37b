package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/natindo/poolmini/internal/forms"
	"github.com/natindo/poolmini/internal/models"
	"github.com/natindo/poolmini/internal/services"
	"github.com/natindo/poolmini/internal/wizard"
)

const timeLayout = "2006-01-02 15:04"

var errOtherWizard = errors.New("another wizard is in progress")

const helpText = "Commands:\n" +
	"/newpool - create a pool step by step\n" +
	"/newhostedpool - create a pool with a payout wallet\n" +
	"/newgiveaway - create a giveaway\n" +
	"/back - go back one step\n" +
	"/cancel - cancel the current wizard\n" +
	"/list - show your pools\n" +
	"/giveaways - show your giveaways\n" +
	"/join <id> [name] - join a pool\n" +
	"/enter <id> [name] - enter a giveaway\n" +
	"/delete <id> - delete a pool (/delete g<id> for a giveaway)\n" +
	"/help - this help"

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.send(msg.Chat.ID, "Hi! I create pools and giveaways.\n\n"+helpText)
	case "help":
		b.send(msg.Chat.ID, helpText)
	case "newpool":
		b.cmdNew(msg, wizard.KindPool)
	case "newhostedpool":
		b.cmdNew(msg, wizard.KindHostedPool)
	case "newgiveaway":
		b.cmdNew(msg, wizard.KindGiveaway)
	case "back":
		b.cmdBack(msg.Chat.ID)
	case "cancel":
		b.cmdCancel(msg.Chat.ID)
	case "list":
		b.cmdList(ctx, msg.Chat.ID)
	case "giveaways":
		b.cmdGiveaways(ctx, msg.Chat.ID)
	case "join":
		b.cmdJoin(ctx, msg)
	case "enter":
		b.cmdEnter(ctx, msg)
	case "delete":
		b.cmdDelete(ctx, msg)
	default:
		b.send(msg.Chat.ID, "Unknown command. Use /help")
	}
}

func (b *Bot) cmdNew(msg *tgbotapi.Message, kind wizard.Kind) {
	chatID := msg.Chat.ID
	cs, resumed, err := b.openSession(chatID, kind, displayName(msg.From))
	if errors.Is(err, errOtherWizard) {
		b.send(chatID, fmt.Sprintf("You are already creating a %s. Finish it or /cancel first.", cs.kind))
		return
	}
	if err != nil {
		b.logger.Error("open wizard failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, "Could not start the wizard.")
		return
	}

	if resumed {
		b.send(chatID, "Continuing where you left off.")
	} else {
		b.send(chatID, fmt.Sprintf("Let's create a %s.", kind))
	}
	b.sendPrompt(chatID, cs)
}

func (b *Bot) cmdBack(chatID int64) {
	cs := b.session(chatID)
	if cs == nil {
		b.send(chatID, "No wizard in progress.")
		return
	}
	if _, err := cs.host.Back(); err != nil {
		b.send(chatID, "No wizard in progress.")
	}
}

func (b *Bot) cmdCancel(chatID int64) {
	cs := b.session(chatID)
	if cs == nil || !cs.host.IsOpen() {
		b.send(chatID, "No wizard in progress.")
		return
	}
	cs.host.Close()
	b.send(chatID, "Cancelled. Nothing was saved.")
}

func (b *Bot) cmdList(ctx context.Context, chatID int64) {
	pools, err := b.svc.ListPools(ctx, chatID)
	if err != nil {
		b.logger.Error("list pools failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, "Failed to load your pools.")
		return
	}
	if len(pools) == 0 {
		b.send(chatID, "You have no pools yet. Use /newpool")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your pools:\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, p := range pools {
		fmt.Fprintf(&sb, "%d) ID=%d | %s | buy-in %s | soft cap %d | registration %s\n",
			i+1, p.ID, p.Name, formatAmount(p.BuyIn), p.SoftCap, registrationTextIn(p, b.loc))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Delete #%d", p.ID), deletePoolData(p.ID)),
		))
	}

	out := tgbotapi.NewMessage(chatID, sb.String())
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(out); err != nil {
		b.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) cmdGiveaways(ctx context.Context, chatID int64) {
	list, err := b.svc.ListGiveaways(ctx, chatID)
	if err != nil {
		b.logger.Error("list giveaways failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, "Failed to load your giveaways.")
		return
	}
	if len(list) == 0 {
		b.send(chatID, "You have no giveaways yet. Use /newgiveaway")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your giveaways:\n")
	for i, g := range list {
		draw := "no draw time"
		if g.DrawAt != nil {
			draw = "draw " + g.DrawAt.In(b.loc).Format(timeLayout)
		}
		fmt.Fprintf(&sb, "%d) ID=%d | %s | %d places | %s | %s\n", i+1, g.ID, g.Name, g.Capacity, g.Prize, draw)
	}
	b.send(chatID, sb.String())
}

func (b *Bot) cmdJoin(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	id, name, ok := b.idAndName(msg, "/join 12")
	if !ok {
		return
	}
	p, err := b.svc.JoinPool(ctx, id, name)
	if err != nil {
		b.send(chatID, b.serviceErrorText("join", err))
		return
	}
	b.send(chatID, fmt.Sprintf("%s joined %q. Participants: %d/%d", name, p.Pool.Name, p.Participants, p.Pool.SoftCap))
}

func (b *Bot) cmdEnter(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	id, name, ok := b.idAndName(msg, "/enter 7")
	if !ok {
		return
	}
	n, err := b.svc.EnterGiveaway(ctx, id, name)
	if err != nil {
		b.send(chatID, b.serviceErrorText("enter", err))
		return
	}
	b.send(chatID, fmt.Sprintf("%s entered giveaway #%d. Entries: %d", name, id, n))
}

func (b *Bot) cmdDelete(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.send(chatID, "Give the ID: /delete 12 (or /delete g7 for a giveaway)")
		return
	}

	giveaway := strings.HasPrefix(arg, "g")
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "g"), 10, 64)
	if err != nil {
		b.send(chatID, "Invalid ID.")
		return
	}

	if giveaway {
		err = b.svc.DeleteGiveaway(ctx, chatID, id)
	} else {
		err = b.svc.DeletePool(ctx, chatID, id)
	}
	if err != nil {
		b.send(chatID, b.serviceErrorText("delete", err))
		return
	}
	b.send(chatID, "Deleted.")
}

// handleStepMessage feeds plain text to the current step's form.
func (b *Bot) handleStepMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cs := b.session(chatID)
	if cs == nil || !cs.host.IsOpen() {
		return
	}

	step := cs.host.Step()
	form, ok := forms.For(cs.kind, step)
	if !ok {
		return
	}
	fields, err := form.Parse(msg.Text, b.loc)
	if err != nil {
		b.send(chatID, fieldErrorText(err)+"\n"+form.Prompt())
		return
	}
	b.submit(ctx, chatID, cs, wizard.Fragment{Step: step, Fields: fields})
}

// submit hands a fragment to the chat's host and reports the outcome.
// Step prompts are sent by the host's step-change hook.
func (b *Bot) submit(ctx context.Context, chatID int64, cs *chatSession, fragment wizard.Fragment) {
	res, err := cs.host.Submit(ctx, fragment)
	switch {
	case err == nil && res.Outcome == wizard.Completed:
		b.send(chatID, summaryText(cs.created, b.loc))
	case err == nil:
	case res.Outcome == wizard.Completed:
		b.logger.Error("failed to save wizard result",
			zap.Int64("chat_id", chatID), zap.String("kind", string(cs.kind)), zap.Error(err))
		b.send(chatID, fmt.Sprintf("Saving failed. Start again with /new%s", strings.ReplaceAll(string(cs.kind), "-", "")))
	default:
		b.logger.Debug("wizard submit rejected", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, rejectText(err))
	}
}

// sendPrompt asks for the active step, with its inline buttons.
func (b *Bot) sendPrompt(chatID int64, cs *chatSession) {
	if !cs.host.IsOpen() {
		return
	}
	step := cs.host.Step()
	def := cs.host.Definition()
	spec, _ := def.Step(step)
	form, ok := forms.For(cs.kind, step)
	if !ok {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Step %d/%d (%s)\n%s", step, def.TotalSteps(), spec.Name, form.Prompt())
	if current := currentValues(cs.host.InitialData(), b.loc); current != "" {
		sb.WriteString("\nCurrent: " + current)
	}

	out := tgbotapi.NewMessage(chatID, sb.String())
	if kb, ok := stepKeyboard(spec.Name, step); ok {
		out.ReplyMarkup = kb
	}
	if _, err := b.api.Send(out); err != nil {
		b.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) idAndName(msg *tgbotapi.Message, example string) (int64, string, bool) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.send(msg.Chat.ID, "Give the ID: "+example)
		return 0, "", false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.send(msg.Chat.ID, "Invalid ID.")
		return 0, "", false
	}
	name := strings.Join(args[1:], " ")
	if name == "" {
		name = displayName(msg.From)
	}
	return id, name, true
}

func (b *Bot) serviceErrorText(op string, err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "Not found."
	case errors.Is(err, services.ErrAlreadyJoined):
		return "That name is already registered."
	case errors.Is(err, services.ErrRegistrationClosed):
		return "Registration is closed."
	case errors.Is(err, services.ErrFull):
		return "Sorry, it's full."
	case errors.Is(err, services.ErrGiveawayClosed):
		return "The giveaway has already been drawn."
	case errors.Is(err, services.ErrInvalidName):
		return "Please give a name (up to 64 characters)."
	}
	b.logger.Error(op+" failed", zap.Error(err))
	return "Something went wrong, try again later."
}

func fieldErrorText(err error) string {
	var fe *forms.FieldError
	if errors.As(err, &fe) {
		return fmt.Sprintf("Invalid %s: %s.", fe.Field, fe.Msg)
	}
	return "Could not read that."
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func summaryText(c *models.Created, loc *time.Location) string {
	if c == nil {
		return "Saved."
	}
	if g := c.Giveaway; g != nil {
		draw := "not set"
		if g.DrawAt != nil {
			draw = g.DrawAt.In(loc).Format(timeLayout)
		}
		return fmt.Sprintf("Giveaway created (ID=%d):\n%s\nPrize: %s\nPlaces: %d\nDraw: %s\nEnter with /enter %d",
			g.ID, g.Name, g.Prize, g.Capacity, draw, g.ID)
	}

	p := c.Pool
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pool created (ID=%d):\n%s\nTemplate: %s\nRegistration: %s\nBuy-in: %s, soft cap: %d",
		p.ID, p.Name, p.SelectedImage, registrationTextIn(*p, loc), formatAmount(p.BuyIn), p.SoftCap)
	if p.RulesLink != "" {
		sb.WriteString("\nRules: " + p.RulesLink)
	}
	if p.PayoutAddress != "" {
		fmt.Fprintf(&sb, "\nPayout: %s (%s)", p.PayoutAddress, p.TokenSymbol)
	}
	fmt.Fprintf(&sb, "\nShare: /p/%s", p.Slug)
	return sb.String()
}
