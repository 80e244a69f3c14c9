package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/estimate-bot/internal/command"
	"github.com/Spok95/estimate-bot/internal/conversation"
	"github.com/Spok95/estimate-bot/internal/report"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	msgWelcome = "👋 歡迎使用線上估價！\n輸入「" + command.StartKeyword + "」即可開始，隨時輸入「" + command.ViewKeyword + "」查看目前的項目。"
	msgHelp    = "📖 使用說明\n" +
		command.StartKeyword + " — 開始新的估價\n" +
		command.ViewKeyword + " — 查看已選項目\n" +
		"✂️ 刪除第N項 — 刪除項目\n" +
		"📝 修改第N項為X個 — 修改數量"
	msgUnknownCommand = "不支援此指令，請輸入 /help 查看說明。"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.send(tgbotapi.NewMessage(chatID, msgWelcome))
		b.dispatch(ctx, chatID, conversation.Event{UserID: userKey(msg.From.ID), Text: command.StartKeyword})
		return

	case "help":
		b.send(tgbotapi.NewMessage(chatID, msgHelp))
		return

	case "export":
		// только из чата оператора
		if b.adminChat == 0 || chatID != b.adminChat {
			b.send(tgbotapi.NewMessage(chatID, msgUnknownCommand))
			return
		}
		b.exportEstimates(ctx, chatID, msg.CommandArguments())
		return

	default:
		b.send(tgbotapi.NewMessage(chatID, msgUnknownCommand))
		return
	}
}

// exportEstimates выгружает сметы в Excel. Аргументы: [с] [по], YYYY-MM-DD,
// обе даты включительно; по умолчанию последние 30 дней.
func (b *Bot) exportEstimates(ctx context.Context, chatID int64, args string) {
	from, to, err := exportRange(args, time.Now())
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "格式：/export 2026-10-01 2026-10-19"))
		return
	}

	data, n, err := report.Export(ctx, b.estimates, from, to)
	if err != nil {
		b.log.Error("export failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "匯出估價單失敗，請稍後再試。"))
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  report.FileName(from, to.AddDate(0, 0, -1)),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("估價單 %s ~ %s：共 %d 筆",
		from.Format(report.DateLayout), to.AddDate(0, 0, -1).Format(report.DateLayout), n)
	b.send(doc)
}

// exportRange аргументы /export: [с] [по].
func exportRange(args string, now time.Time) (time.Time, time.Time, error) {
	fields := strings.Fields(args)
	if len(fields) > 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("too many arguments")
	}
	fields = append(fields, "", "")
	return report.Period(fields[0], fields[1], now)
}
