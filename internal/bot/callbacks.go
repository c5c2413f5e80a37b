package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/natindo/poolmini/internal/forms"
	"github.com/natindo/poolmini/internal/models"
	"github.com/natindo/poolmini/internal/wizard"
)

// Callback data: "tpl:<step>:<n>", "skip:<step>", "back", "delpool:<id>".
const (
	actionTemplate   = "tpl"
	actionSkip       = "skip"
	actionBack       = "back"
	actionDeletePool = "delpool"
)

// handleCallbackQuery handles inline button presses.
func (b *Bot) handleCallbackQuery(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		b.answer(cq.ID, "")
		return
	}
	chatID := cq.Message.Chat.ID
	action, rest, _ := strings.Cut(cq.Data, ":")

	switch action {
	case actionTemplate:
		stepStr, n, _ := strings.Cut(rest, ":")
		step, err := strconv.Atoi(stepStr)
		if err != nil {
			b.answer(cq.ID, "Unknown action")
			return
		}
		b.answer(cq.ID, "")
		b.submitButton(ctx, chatID, step, wizard.Fields{wizard.FieldSelectedImage: "template-" + n})

	case actionSkip:
		step, err := strconv.Atoi(rest)
		if err != nil {
			b.answer(cq.ID, "Unknown action")
			return
		}
		b.answer(cq.ID, "Registration disabled")
		b.submitButton(ctx, chatID, step, wizard.Fields{wizard.FieldRegistrationEnabled: false})

	case actionBack:
		b.answer(cq.ID, "")
		b.cmdBack(chatID)

	case actionDeletePool:
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			b.answer(cq.ID, "Unknown action")
			return
		}
		if err := b.svc.DeletePool(ctx, chatID, id); err != nil {
			b.answer(cq.ID, "")
			b.send(chatID, b.serviceErrorText("delete", err))
			return
		}
		b.answer(cq.ID, "Deleted")
		b.send(chatID, fmt.Sprintf("Pool #%d deleted.", id))

	default:
		b.answer(cq.ID, "Unknown action")
	}
}

// submitButton submits a button's fields for the step the button was
// rendered at. Buttons from an earlier step are rejected by the wizard.
func (b *Bot) submitButton(ctx context.Context, chatID int64, step int, fields wizard.Fields) {
	cs := b.session(chatID)
	if cs == nil || !cs.host.IsOpen() {
		b.send(chatID, "No wizard in progress.")
		return
	}

	raw := wizard.Fragment{Step: step, Fields: fields}
	current := wizard.State{Step: cs.host.Step(), Data: cs.host.Data()}
	if _, _, err := wizard.Advance(cs.host.Definition(), current, raw); err != nil {
		b.send(chatID, rejectText(err))
		return
	}

	form, ok := forms.For(cs.kind, step)
	if !ok {
		return
	}
	normalized, err := form.Normalize(fields)
	if err != nil {
		b.send(chatID, fieldErrorText(err))
		return
	}
	b.submit(ctx, chatID, cs, wizard.Fragment{Step: step, Fields: normalized})
}

func (b *Bot) answer(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Debug("callback answer failed", zap.Error(err))
	}
}

func rejectText(err error) string {
	switch {
	case errors.Is(err, wizard.ErrStepMismatch):
		return "That button belongs to another step."
	case errors.Is(err, wizard.ErrClosed), errors.Is(err, wizard.ErrCompleted):
		return "No wizard in progress."
	}
	return "That input does not fit this step."
}

func stepKeyboard(stepName string, step int) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	switch stepName {
	case "template":
		var row []tgbotapi.InlineKeyboardButton
		for i := range forms.Templates {
			n := strconv.Itoa(i + 1)
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(n, actionTemplate+":"+strconv.Itoa(step)+":"+n))
			if len(row) == 3 {
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
		}
	case "registration":
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Skip registration", actionSkip+":"+strconv.Itoa(step)),
		))
	}
	if step > 1 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("« Back", actionBack),
		))
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func deletePoolData(id int64) string {
	return actionDeletePool + ":" + strconv.FormatInt(id, 10)
}

// currentValues renders the prefilled fields of a step, e.g. after /back.
func currentValues(fields wizard.Fields, loc *time.Location) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		var s string
		switch v := fields[k].(type) {
		case nil:
			continue
		case time.Time:
			s = v.In(loc).Format(timeLayout)
		case float64:
			s = formatAmount(v)
		case string:
			s = v
		default:
			s = fmt.Sprint(v)
		}
		if s == "" {
			continue
		}
		parts = append(parts, k+"="+s)
	}
	return strings.Join(parts, ", ")
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func registrationTextIn(p models.Pool, loc *time.Location) string {
	if !p.RegistrationEnabled {
		return "disabled"
	}
	start, end := "?", "?"
	if p.RegistrationStart != nil {
		start = p.RegistrationStart.In(loc).Format(timeLayout)
	}
	if p.RegistrationEnd != nil {
		end = p.RegistrationEnd.In(loc).Format(timeLayout)
	}
	return start + " - " + end
}
