package bot

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

/*** HELPERS ***/

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) error {
	resp := tgbotapi.NewCallback(cb.ID, text)
	resp.ShowAlert = alert
	_, err := b.api.Request(resp)
	return err
}

// maxCallbackData лимит Telegram на callback_data, в байтах.
const maxCallbackData = 64

const tokenPrefix = "#"

// callbackCodec заменяет слишком длинные данные кнопок коротким ключом.
// Ключ детерминирован: одинаковые данные всегда дают один ключ.
type callbackCodec struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func newCallbackCodec() *callbackCodec {
	return &callbackCodec{tokens: make(map[string]string)}
}

func (c *callbackCodec) Encode(data string) string {
	if len(data) <= maxCallbackData && !strings.HasPrefix(data, tokenPrefix) {
		return data
	}
	sum := sha256.Sum256([]byte(data))
	token := tokenPrefix + hex.EncodeToString(sum[:16])

	c.mu.Lock()
	c.tokens[token] = data
	c.mu.Unlock()
	return token
}

// Decode исходные данные; неизвестный ключ возвращается как есть.
func (c *callbackCodec) Decode(data string) string {
	if !strings.HasPrefix(data, tokenPrefix) {
		return data
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.tokens[data]; ok {
		return v
	}
	return data
}
