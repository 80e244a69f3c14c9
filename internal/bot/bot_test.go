package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/estimate-bot/internal/command"
	"github.com/Spok95/estimate-bot/internal/conversation"
	"github.com/Spok95/estimate-bot/internal/dialog"
	"github.com/Spok95/estimate-bot/internal/domain/catalog"
	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	"github.com/Spok95/estimate-bot/internal/infra/logger"
	"github.com/Spok95/estimate-bot/internal/report"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longName = "浴室防水工程含拆除舊磁磚與重新鋪設防水層"

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests int
	updates  chan tgbotapi.Update
	failSend error
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }
func (f *fakeAPI) StopReceivingUpdates()                                     {}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.failSend
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	api  *fakeAPI
	bot  *Bot
	repo *estimates.MemoryRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.New([]catalog.Entry{
		{Name: "冷氣清洗", Unit: "台", PriceLow: catalog.Price(100), PriceHigh: catalog.Price(150)},
		{Name: longName, Unit: "坪", PriceLow: catalog.Price(5000), PriceHigh: catalog.Price(8000)},
	})
	require.NoError(t, err)

	log := logger.Discard()
	repo := estimates.NewMemoryRepo()
	ctrl := conversation.New(cat, 10, dialog.NewMemoryStore(), repo, nil, log)
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 4)}
	return &fixture{api: api, bot: New(api, log, ctrl, repo, 999, 2), repo: repo}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func callbackData(t *testing.T, m tgbotapi.MessageConfig) []string {
	t.Helper()
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "expected inline keyboard")
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			require.NotNil(t, b.CallbackData)
			out = append(out, *b.CallbackData)
		}
	}
	return out
}

func TestCallbackCodec(t *testing.T) {
	c := newCallbackCodec()
	assert.Equal(t, "finish_selection", c.Encode("finish_selection"))

	long := command.SelectServiceData(longName)
	require.Greater(t, len(long), maxCallbackData)
	token := c.Encode(long)
	assert.LessOrEqual(t, len(token), maxCallbackData)
	assert.Equal(t, token, c.Encode(long))
	assert.Equal(t, long, c.Decode(token))

	// ключ из другого процесса совпадает
	assert.Equal(t, token, newCallbackCodec().Encode(long))
	assert.Equal(t, "#unknown", c.Decode("#unknown"))
	assert.Equal(t, "next_page:2", c.Decode("next_page:2"))
}

func TestStartShowsMenuWithShortCallbacks(t *testing.T) {
	f := newFixture(t)
	f.bot.handleUpdate(context.Background(), textUpdate(1, "我要估價"))

	msgs := f.api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "請問您需要哪些服務？（第 1 頁）", msgs[0].Text)

	data := callbackData(t, msgs[0])
	require.Len(t, data, 3)
	for _, d := range data {
		assert.LessOrEqual(t, len(d), maxCallbackData)
	}
	assert.Equal(t, command.SelectServiceData(longName), f.bot.codec.Decode(data[1]))
}

func TestCallbackRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bot.handleUpdate(ctx, textUpdate(1, "我要估價"))
	token := callbackData(t, f.api.messages()[0])[1]

	f.bot.handleUpdate(ctx, callbackUpdate(1, token))
	assert.Equal(t, 1, f.api.requests)

	msgs := f.api.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "請問 "+longName+" 需要幾坪？", msgs[1].Text)
}

func TestPreloadSurvivesRestart(t *testing.T) {
	f := newFixture(t)
	data := command.SelectServiceData(longName)
	token := newCallbackCodec().Encode(data)

	f.bot.Preload(data)
	f.bot.handleUpdate(context.Background(), textUpdate(1, "我要估價"))
	f.bot.handleUpdate(context.Background(), callbackUpdate(1, token))

	msgs := f.api.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Text, longName)
}

func TestCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.handleUpdate(ctx, textUpdate(1, "/start"))
	msgs := f.api.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "歡迎")
	assert.Contains(t, msgs[1].Text, "第 1 頁")

	f.bot.handleUpdate(ctx, textUpdate(1, "/export"))
	msgs = f.api.messages()
	assert.Equal(t, msgUnknownCommand, msgs[len(msgs)-1].Text)

	f.bot.handleUpdate(ctx, textUpdate(999, "/export 2026-10-01 2026-10-19"))
	f.api.mu.Lock()
	last := f.api.sent[len(f.api.sent)-1]
	f.api.mu.Unlock()
	doc, ok := last.(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, "估價單 2026-10-01 ~ 2026-10-19：共 0 筆", doc.Caption)

	f.bot.handleUpdate(ctx, textUpdate(999, "/export yesterday"))
	msgs = f.api.messages()
	assert.Contains(t, msgs[len(msgs)-1].Text, "/export")
}

type brokenHandler struct{}

func (brokenHandler) Handle(context.Context, conversation.Event) ([]conversation.Message, error) {
	return nil, errors.New("db down")
}

func TestHandlerErrorSendsApology(t *testing.T) {
	api := &fakeAPI{}
	b := New(api, logger.Discard(), brokenHandler{}, nil, 0, 1)
	b.handleUpdate(context.Background(), textUpdate(5, "我要估價"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, msgSorry, msgs[0].Text)
}

func TestRunProcessesUpdatesUntilCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.bot.Run(ctx, 0) }()

	f.api.updates <- textUpdate(1, "我要估價")
	f.api.updates <- textUpdate(2, "查看已選項目")
	require.Eventually(t, func() bool { return len(f.api.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestExportRange(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 4, 0, 0, time.UTC)

	from, to, err := exportRange("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), to)
	// то же окно, что и у CLI-выгрузки
	cliFrom, cliTo, err := report.Period("", "", now)
	require.NoError(t, err)
	assert.Equal(t, cliFrom, from)
	assert.Equal(t, cliTo, to)

	from, to, err = exportRange("2026-10-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), to)

	_, _, err = exportRange("2026-10-05 2026-10-01", now)
	assert.Error(t, err)
	_, _, err = exportRange("a b c", now)
	assert.Error(t, err)
}

func TestOperatorNotifier(t *testing.T) {
	api := &fakeAPI{}
	e := estimates.Estimate{Ref: "ref-9", Name: "王小明", Source: estimates.SourceChat}

	require.NoError(t, NewOperatorNotifier(api, 0).NotifyEstimate(context.Background(), e))
	assert.Empty(t, api.messages())

	require.NoError(t, NewOperatorNotifier(api, 777).NotifyEstimate(context.Background(), e))
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(777), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "ref-9")

	api.failSend = errors.New("blocked")
	assert.Error(t, NewOperatorNotifier(api, 777).NotifyEstimate(context.Background(), e))
}
