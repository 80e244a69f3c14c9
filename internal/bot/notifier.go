package bot

import (
	"context"
	"fmt"

	"github.com/Spok95/estimate-bot/internal/conversation"
	"github.com/Spok95/estimate-bot/internal/domain/estimates"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// OperatorNotifier шлёт новую смету в чат оператора.
type OperatorNotifier struct {
	api    sender
	chatID int64
}

func NewOperatorNotifier(api sender, chatID int64) *OperatorNotifier {
	return &OperatorNotifier{api: api, chatID: chatID}
}

func (n *OperatorNotifier) NotifyEstimate(_ context.Context, e estimates.Estimate) error {
	if n.chatID == 0 {
		return nil
	}
	for _, part := range splitText(conversation.OperatorText(e), maxMessageLen) {
		if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, part)); err != nil {
			return fmt.Errorf("send to operator chat: %w", err)
		}
	}
	return nil
}
