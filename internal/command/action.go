package command

import (
	"strconv"
	"strings"
)

// Данные кнопок: "<действие>" или "<действие>:<аргумент>".
const (
	ActionSelectService   = "select_service"
	ActionNextPage        = "next_page"
	ActionPrevPage        = "prev_page"
	ActionFinishSelection = "finish_selection"
	ActionConfirmEstimate = "confirm_estimate"
	ActionConfirmBooking  = "confirm_booking"
	ActionModifyEstimate  = "modify_estimate"
)

func SelectServiceData(name string) string { return ActionSelectService + ":" + name }
func NextPageData(page int) string         { return ActionNextPage + ":" + strconv.Itoa(page) }
func PrevPageData(page int) string         { return ActionPrevPage + ":" + strconv.Itoa(page) }

// ParseAction разбирает данные нажатой кнопки. Неизвестное действие даёт
// KindNone без ошибки.
func ParseAction(data string) (Command, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(data), ":")
	switch name {
	case ActionSelectService:
		if arg == "" {
			return Command{}, &ParseError{Kind: KindSelectService, Input: data, Err: ErrMalformed}
		}
		return Command{Kind: KindSelectService, Arg: arg}, nil
	case ActionNextPage, ActionPrevPage:
		kind := KindNextPage
		if name == ActionPrevPage {
			kind = KindPrevPage
		}
		p, err := strconv.Atoi(arg)
		if err != nil {
			return Command{}, &ParseError{Kind: kind, Input: data, Err: ErrMalformed}
		}
		return Command{Kind: kind, Page: p}, nil
	case ActionFinishSelection:
		return Command{Kind: KindFinishSelection}, nil
	case ActionConfirmEstimate:
		return Command{Kind: KindConfirmEstimate}, nil
	case ActionConfirmBooking:
		return Command{Kind: KindConfirmBooking}, nil
	case ActionModifyEstimate:
		return Command{Kind: KindModifyEstimate}, nil
	}
	return Command{Kind: KindNone}, nil
}
