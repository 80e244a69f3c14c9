package command

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Spok95/estimate-bot/internal/dialog"
	"github.com/Spok95/estimate-bot/internal/domain/ledger"
)

// Ключевые фразы чата.
const (
	StartKeyword = "我要估價"
	ViewKeyword  = "查看已選項目"
)

var (
	deletePrefixes = []string{"✂️ 刪除第", "刪除第"}
	modifyPrefixes = []string{"📝 修改第", "修改第"}
)

const (
	indexSuffix    = "項"
	quantityMarker = "為"
	quantitySuffix = "個"
)

// ParseText разбирает текстовое сообщение. Порядок проверок важен:
// ключевые слова, удаление, изменение количества, затем ввод, который
// ожидается в текущем состоянии. itemCount длина списка на момент разбора.
func ParseText(text string, st dialog.State, itemCount int) (Command, error) {
	t := strings.TrimSpace(text)

	switch t {
	case StartKeyword:
		return Command{Kind: KindStart}, nil
	case ViewKeyword:
		return Command{Kind: KindViewSelection}, nil
	}

	if rest, ok := cutPrefix(t, deletePrefixes); ok {
		return parseDelete(t, rest, itemCount)
	}
	if rest, ok := cutPrefix(t, modifyPrefixes); ok && strings.Contains(rest, quantityMarker) {
		return parseModify(t, rest, itemCount)
	}

	switch st {
	case dialog.StateQuantityInput:
		q, err := parseQuantity(t)
		if err != nil {
			return Command{}, &ParseError{Kind: KindQuantity, Input: t, Err: err}
		}
		return Command{Kind: KindQuantity, Quantity: q}, nil
	case dialog.StateContactInfo:
		if t == "" {
			return Command{}, &ParseError{Kind: KindContact, Input: text, Err: ErrMalformed}
		}
		return Command{Kind: KindContact, Text: t}, nil
	}

	return Command{Kind: KindNone, Text: t}, nil
}

func parseDelete(input, rest string, itemCount int) (Command, error) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), indexSuffix)))
	if err != nil {
		return Command{}, &ParseError{Kind: KindDelete, Input: input, Err: ErrMalformed}
	}
	if n < 1 || n > itemCount {
		return Command{}, &ParseError{Kind: KindDelete, Input: input, Index: n, Err: ledger.ErrIndexOutOfRange}
	}
	return Command{Kind: KindDelete, Index: n - 1}, nil
}

func parseModify(input, rest string, itemCount int) (Command, error) {
	idx, qty, _ := strings.Cut(rest, quantityMarker)
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(idx), indexSuffix)))
	if err != nil {
		return Command{}, &ParseError{Kind: KindModify, Input: input, Err: ErrMalformed}
	}
	q, err := parseQuantity(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(qty), quantitySuffix)))
	if errors.Is(err, ErrMalformed) {
		return Command{}, &ParseError{Kind: KindModify, Input: input, Index: n, Err: err}
	}
	if n < 1 || n > itemCount {
		return Command{}, &ParseError{Kind: KindModify, Input: input, Index: n, Err: ledger.ErrIndexOutOfRange}
	}
	if err != nil {
		return Command{}, &ParseError{Kind: KindModify, Input: input, Index: n, Err: err}
	}
	return Command{Kind: KindModify, Index: n - 1, Quantity: q}, nil
}

// parseQuantity целое число в пределах 1..ledger.MaxQuantity. Число, не
// влезающее в int, тоже считается недопустимым количеством, а не опечаткой.
func parseQuantity(s string) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ledger.ErrInvalidQuantity
		}
		return 0, ErrMalformed
	}
	if err := ledger.CheckQuantity(q); err != nil {
		return 0, err
	}
	return q, nil
}

func cutPrefix(s string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return rest, true
		}
	}
	return "", false
}
