package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/natindo/poolmini/internal/database"
	"github.com/natindo/poolmini/internal/models"
	"github.com/natindo/poolmini/internal/services"
	"github.com/natindo/poolmini/internal/wizard"
)

const chatID int64 = 1001

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	answers []tgbotapi.CallbackConfig
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.answers = append(f.answers, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) last() tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) texts() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var parts []string
	for _, m := range f.sent {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n---\n")
}

type failingFinalize struct {
	Service
}

func (failingFinalize) Finalize(context.Context, wizard.Kind, services.Owner, wizard.Fields) (models.Created, error) {
	return models.Created{}, errors.New("disk full")
}

func newTestService(t *testing.T) *services.PoolService {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.CreateSQLiteSchema(ctx, db))
	store := services.NewSQLiteStore(db)
	t.Cleanup(func() { store.Close() })
	return services.NewPoolService(store, nil, zaptest.NewLogger(t))
}

func newTestBot(t *testing.T, svc Service) (*Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	return New(api, svc, zaptest.NewLogger(t)), api
}

func command(text string) tgbotapi.Update {
	return commandFrom("ann", text)
}

func commandFrom(user, text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{UserName: user},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func text(s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{UserName: "ann"},
		Text: s,
	}}
}

func button(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestBot_PoolWizard(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	b, api := newTestBot(t, svc)

	b.HandleUpdate(ctx, command("/newpool"))
	prompt := api.last()
	assert.Contains(t, prompt.Text, "Step 1/4 (template)")
	kb, ok := prompt.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, kb.InlineKeyboard, 2, "six templates in rows of three")

	b.HandleUpdate(ctx, button("tpl:1:3"))
	assert.Contains(t, api.last().Text, "Step 2/4 (details)")
	require.NotEmpty(t, api.answers)

	// a template button from step 1 pressed again at step 2
	b.HandleUpdate(ctx, button("tpl:1:5"))
	assert.Equal(t, "That button belongs to another step.", api.last().Text)

	b.HandleUpdate(ctx, text("Friday Pool | weekly fun"))
	assert.Contains(t, api.last().Text, "Step 3/4 (registration)")

	b.HandleUpdate(ctx, button("skip:3"))
	assert.Contains(t, api.last().Text, "Step 4/4 (terms)")

	b.HandleUpdate(ctx, text("ten 5"))
	assert.Contains(t, api.last().Text, "Invalid buyIn")

	b.HandleUpdate(ctx, text("10 2 https://example.com/rules"))
	summary := api.last().Text
	assert.Contains(t, summary, "Pool created (ID=1)")
	assert.Contains(t, summary, "Template: template-3")
	assert.Contains(t, summary, "Registration: disabled")

	pools, err := svc.ListPools(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, "@ann", pools[0].CreatorName)

	// the session is closed after completion
	b.HandleUpdate(ctx, text("more text"))
	assert.Equal(t, summary, api.last().Text)

	b.HandleUpdate(ctx, command("/list"))
	assert.Contains(t, api.last().Text, "ID=1 | Friday Pool")

	b.HandleUpdate(ctx, command("/join 1 bob"))
	assert.Equal(t, "Registration is closed.", api.last().Text)

	b.HandleUpdate(ctx, button("delpool:1"))
	assert.Equal(t, "Pool #1 deleted.", api.last().Text)
}

func TestBot_BackAndCancel(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t, newTestService(t))

	b.HandleUpdate(ctx, command("/back"))
	assert.Equal(t, "No wizard in progress.", api.last().Text)

	b.HandleUpdate(ctx, command("/newpool"))
	b.HandleUpdate(ctx, text("2"))
	b.HandleUpdate(ctx, text("Saturday Pool"))
	assert.Contains(t, api.last().Text, "Step 3/4")

	b.HandleUpdate(ctx, command("/back"))
	last := api.last().Text
	assert.Contains(t, last, "Step 2/4 (details)")
	assert.Contains(t, last, "name=Saturday Pool")
	assert.Contains(t, api.texts(), "Back to step 2.")

	// /newpool while open keeps the running session
	b.HandleUpdate(ctx, command("/newpool"))
	assert.Contains(t, api.texts(), "Continuing where you left off.")
	assert.Contains(t, api.last().Text, "Step 2/4")

	b.HandleUpdate(ctx, command("/newgiveaway"))
	assert.Contains(t, api.last().Text, "Finish it or /cancel first")

	b.HandleUpdate(ctx, command("/cancel"))
	assert.Equal(t, "Cancelled. Nothing was saved.", api.last().Text)

	// reopening after cancel starts fresh
	b.HandleUpdate(ctx, command("/newpool"))
	assert.Contains(t, api.last().Text, "Step 1/4")
	assert.NotContains(t, api.last().Text, "Current:")
}

func TestBot_Giveaway(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t, newTestService(t))

	b.HandleUpdate(ctx, command("/newgiveaway"))
	assert.Contains(t, api.last().Text, "Step 1/2 (details)")

	b.HandleUpdate(ctx, text("Holiday | gifts | 2"))
	b.HandleUpdate(ctx, text("1 | Mug"))
	assert.Contains(t, api.last().Text, "Giveaway created (ID=1)")

	b.HandleUpdate(ctx, command("/enter 1 bob"))
	assert.Contains(t, api.last().Text, "Entries: 1")

	b.HandleUpdate(ctx, command("/enter 1 carol"))
	assert.Equal(t, "Sorry, it's full.", api.last().Text)

	b.HandleUpdate(ctx, command("/giveaways"))
	assert.Contains(t, api.last().Text, "ID=1 | Holiday | 1 places | Mug")

	b.HandleUpdate(ctx, command("/delete g1"))
	assert.Equal(t, "Deleted.", api.last().Text)
}

func TestBot_SaveFailure(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t, failingFinalize{Service: newTestService(t)})

	b.HandleUpdate(ctx, command("/newgiveaway"))
	b.HandleUpdate(ctx, text("Holiday"))
	b.HandleUpdate(ctx, text("3 | Mug"))
	assert.Equal(t, "Saving failed. Start again with /newgiveaway", api.last().Text)

	// the failed session is not restored
	b.HandleUpdate(ctx, command("/back"))
	assert.Equal(t, "No wizard in progress.", api.last().Text)
}

func TestBot_Commands(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t, newTestService(t))

	b.HandleUpdate(ctx, command("/start"))
	assert.Contains(t, api.last().Text, "/newpool")

	b.HandleUpdate(ctx, command("/list"))
	assert.Contains(t, api.last().Text, "no pools")

	b.HandleUpdate(ctx, command("/join"))
	assert.Contains(t, api.last().Text, "Give the ID")

	b.HandleUpdate(ctx, command("/delete abc"))
	assert.Equal(t, "Invalid ID.", api.last().Text)

	b.HandleUpdate(ctx, command("/delete 99"))
	assert.Equal(t, "Not found.", api.last().Text)

	b.HandleUpdate(ctx, command("/nope"))
	assert.Contains(t, api.last().Text, "Unknown command")

	require.NoError(t, b.Notify(ctx, 77, "hello"))
	assert.Equal(t, int64(77), api.last().ChatID)
}

func TestBot_SkipAfterBackClearsWindow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	b, api := newTestBot(t, svc)

	b.HandleUpdate(ctx, command("/newpool"))
	b.HandleUpdate(ctx, button("tpl:1:2"))
	b.HandleUpdate(ctx, text("Window Pool"))
	b.HandleUpdate(ctx, text("2030-01-02 10:00 | 2030-01-02 12:00"))
	assert.Contains(t, api.last().Text, "Step 4/4 (terms)")

	b.HandleUpdate(ctx, command("/back"))
	assert.Contains(t, api.last().Text, "Step 3/4 (registration)")

	b.HandleUpdate(ctx, button("skip:3"))
	assert.Contains(t, api.last().Text, "Step 4/4 (terms)")
	assert.NotContains(t, api.last().Text, "<nil>")

	b.HandleUpdate(ctx, text("5 3"))
	assert.Contains(t, api.last().Text, "Registration: disabled")

	pools, err := svc.ListPools(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.False(t, pools[0].RegistrationEnabled)
	assert.Nil(t, pools[0].RegistrationStart)
	assert.Nil(t, pools[0].RegistrationEnd)
}

func TestBot_CreatorFollowsWhoStarted(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	b, _ := newTestBot(t, svc)

	b.HandleUpdate(ctx, commandFrom("ann", "/newgiveaway"))
	b.HandleUpdate(ctx, text("First"))
	b.HandleUpdate(ctx, text("3 | Mug"))

	b.HandleUpdate(ctx, commandFrom("bob", "/newgiveaway"))
	// resuming does not change who started the session
	b.HandleUpdate(ctx, commandFrom("carol", "/newgiveaway"))
	b.HandleUpdate(ctx, text("Second"))
	b.HandleUpdate(ctx, text("3 | Cap"))

	list, err := svc.ListGiveaways(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byName := map[string]string{}
	for _, g := range list {
		byName[g.Name] = g.CreatorName
	}
	assert.Equal(t, "@ann", byName["First"])
	assert.Equal(t, "@bob", byName["Second"])
}
