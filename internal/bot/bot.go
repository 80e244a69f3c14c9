package bot

import (
	"context"
	"hash/fnv"
	"log/slog"
	"strconv"

	"github.com/Spok95/estimate-bot/internal/conversation"
	"github.com/Spok95/estimate-bot/internal/report"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

// API часть tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler диалог оценки.
type Handler interface {
	Handle(ctx context.Context, ev conversation.Event) ([]conversation.Message, error)
}

const msgSorry = "⚠️ 系統忙碌中，請稍後再試。"

type Bot struct {
	api       API
	log       *slog.Logger
	dialog    Handler
	estimates report.Source
	adminChat int64
	codec     *callbackCodec
	workers   int
}

func New(api API, log *slog.Logger, dialog Handler, estimatesSrc report.Source,
	adminChatID int64, workers int) *Bot {

	if workers <= 0 {
		workers = 1
	}
	return &Bot{
		api: api, log: log, dialog: dialog, estimates: estimatesSrc,
		adminChat: adminChatID, codec: newCallbackCodec(), workers: workers,
	}
}

// Preload регистрирует данные кнопок заранее, чтобы короткие ключи
// длинных названий работали и после перезапуска.
func (b *Bot) Preload(data ...string) {
	for _, d := range data {
		b.codec.Encode(d)
	}
}

// Run читает апдейты и раздаёт их воркерам. Апдейты одного пользователя
// всегда попадают к одному воркеру и обрабатываются по порядку.
func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)

	g, ctx := errgroup.WithContext(ctx)
	shards := make([]chan tgbotapi.Update, b.workers)
	for i := range shards {
		ch := make(chan tgbotapi.Update, 16)
		shards[i] = ch
		g.Go(func() error {
			for upd := range ch {
				b.handleUpdate(ctx, upd)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			b.api.StopReceivingUpdates()
			for _, ch := range shards {
				close(ch)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case upd, ok := <-updates:
				if !ok {
					return nil
				}
				ch := shards[shard(updateUserID(upd), len(shards))]
				select {
				case ch <- upd:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	})
	return g.Wait()
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		b.onMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		b.onCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if msg.Text == "" {
		return
	}
	b.dispatch(ctx, msg.Chat.ID, conversation.Event{UserID: userKey(msg.From.ID), Text: msg.Text})
}

func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if err := b.answerCallback(cb, "", false); err != nil {
		b.log.Warn("answer callback failed", "err", err)
	}
	if cb.Message == nil || cb.From == nil {
		return
	}
	data := b.codec.Decode(cb.Data)
	b.dispatch(ctx, cb.Message.Chat.ID, conversation.Event{UserID: userKey(cb.From.ID), Action: data})
}

func (b *Bot) dispatch(ctx context.Context, chatID int64, ev conversation.Event) {
	out, err := b.dialog.Handle(ctx, ev)
	if err != nil {
		b.log.Error("handle event failed", "user_id", ev.UserID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, msgSorry))
		return
	}
	for _, m := range out {
		for _, msg := range b.render(chatID, m) {
			b.send(msg)
		}
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

func userKey(id int64) string { return strconv.FormatInt(id, 10) }

func updateUserID(upd tgbotapi.Update) int64 {
	switch {
	case upd.Message != nil && upd.Message.From != nil:
		return upd.Message.From.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.From.ID
	}
	return 0
}

func shard(userID int64, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % uint32(n))
}
