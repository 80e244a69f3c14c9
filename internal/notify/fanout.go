package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spok95/estimate-bot/internal/domain/estimates"
)

type Notifier interface {
	NotifyEstimate(ctx context.Context, e estimates.Estimate) error
}

// Named получатель с именем для сообщений об ошибках.
type Named struct {
	Name string
	Notifier
}

// Fanout рассылает смету всем получателям. Ошибка одного не мешает остальным.
type Fanout []Named

func (f Fanout) NotifyEstimate(ctx context.Context, e estimates.Estimate) error {
	var errs []error
	for _, n := range f {
		if n.Notifier == nil {
			continue
		}
		if err := n.NotifyEstimate(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name, err))
		}
	}
	return errors.Join(errs...)
}
