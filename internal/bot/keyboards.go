package bot

import (
	"strings"
	"unicode/utf16"

	"github.com/Spok95/estimate-bot/internal/conversation"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLen предел Telegram на текст сообщения, в единицах UTF-16.
const maxMessageLen = 4096

// render сообщение диалога в одно или несколько сообщений Telegram.
// Длинный текст режется по строкам, кнопки идут с последней частью.
func (b *Bot) render(chatID int64, m conversation.Message) []tgbotapi.MessageConfig {
	text := m.Plain()
	if text == "" {
		text = m.Title
	}
	parts := splitText(text, maxMessageLen)
	out := make([]tgbotapi.MessageConfig, 0, len(parts))
	for _, p := range parts {
		out = append(out, tgbotapi.NewMessage(chatID, p))
	}
	if len(m.Buttons) > 0 {
		out[len(out)-1].ReplyMarkup = b.keyboard(m.Buttons)
	}
	return out
}

func (b *Bot) keyboard(rows [][]conversation.Button) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, btn := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Label, b.codec.Encode(btn.Data)))
		}
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(row...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

// splitText делит текст на части не длиннее limit. Режет по переводам
// строк, слишком длинную строку по символам. Всегда хотя бы одна часть.
func splitText(s string, limit int) []string {
	if utf16Len(s) <= limit {
		return []string{s}
	}

	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if p := strings.TrimSuffix(cur.String(), "\n"); p != "" {
			parts = append(parts, p)
		}
		cur.Reset()
		n = 0
	}
	for _, line := range strings.SplitAfter(s, "\n") {
		for utf16Len(line) > limit {
			head, tail := cutUTF16(line, limit)
			flush()
			parts = append(parts, head)
			line = tail
		}
		l := utf16Len(line)
		if n+l > limit {
			flush()
		}
		cur.WriteString(line)
		n += l
	}
	flush()
	if len(parts) == 0 {
		return []string{s}
	}
	return parts
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// cutUTF16 первые limit единиц UTF-16 строки, не разрывая символы.
func cutUTF16(s string, limit int) (string, string) {
	n := 0
	for i, r := range s {
		l := utf16.RuneLen(r)
		if l < 0 {
			l = 1
		}
		if n+l > limit {
			return s[:i], s[i:]
		}
		n += l
	}
	return s, ""
}
