package command

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind тип разобранной команды.
type Kind int

const (
	KindNone Kind = iota
	KindStart
	KindViewSelection
	KindDelete
	KindModify
	KindQuantity
	KindContact
	KindSelectService
	KindNextPage
	KindPrevPage
	KindFinishSelection
	KindConfirmEstimate
	KindConfirmBooking
	KindModifyEstimate
)

var kindNames = [...]string{
	KindNone:            "none",
	KindStart:           "start",
	KindViewSelection:   "view_selection",
	KindDelete:          "delete",
	KindModify:          "modify",
	KindQuantity:        "quantity",
	KindContact:         "contact",
	KindSelectService:   "select_service",
	KindNextPage:        "next_page",
	KindPrevPage:        "prev_page",
	KindFinishSelection: "finish_selection",
	KindConfirmEstimate: "confirm_estimate",
	KindConfirmBooking:  "confirm_booking",
	KindModifyEstimate:  "modify_estimate",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Command результат разбора входящего события.
type Command struct {
	Kind Kind
	// Index позиция в списке, с нуля (delete, modify).
	Index int
	// Quantity количество (modify, quantity).
	Quantity int
	// Page запрошенная страница (next_page, prev_page).
	Page int
	// Arg название услуги (select_service).
	Arg string
	// Text значение поля контактов.
	Text string
}

// ErrMalformed команда узнана, но аргумент не разбирается.
var ErrMalformed = errors.New("malformed command")

// ParseError ошибка разбора узнанной команды. Kind и Index дают контекст
// для подсказки пользователю.
type ParseError struct {
	Kind  Kind
	Input string
	// Index номер позиции как его ввёл пользователь (с единицы), 0 если не разобран.
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Kind, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
