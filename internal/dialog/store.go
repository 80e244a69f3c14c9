package dialog

import (
	"context"
	"errors"
)

// ErrUnchanged возвращается из функции Update, когда ход ничего не изменил:
// сессия не сохраняется, Update возвращает nil.
var ErrUnchanged = errors.New("session unchanged")

// Store хранилище сессий. Update единственный способ изменить сессию,
// чтение, изменение и запись выполняются атомарно для одного пользователя.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Update(ctx context.Context, userID string, fn func(s *Session) error) error
}
