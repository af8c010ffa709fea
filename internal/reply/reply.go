// Package reply builds the text and keyboards of every bot screen.
//
// Reply keyboard labels are localized, so each label is bound to an Action and
// callers switch on actions rather than on text. Inline buttons carry
// structured callback data (see FormatCallback).
package reply

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vasiliy-maslov/table-order-bot/internal/catalog"
)

var (
	ErrUnknownLanguage = errors.New("unknown language")
	ErrBadCallback     = errors.New("malformed callback data")
)

type Action string

const (
	ActionNone     Action = ""
	ActionBrowse   Action = "browse"
	ActionOrder    Action = "order"
	ActionCheckout Action = "checkout"
	ActionExit     Action = "exit"
	ActionMenu     Action = "menu"
	ActionNext     Action = "next"
	ActionPrev     Action = "prev"
)

// Ends reports whether the action finishes the session.
func (a Action) Ends() bool {
	return a == ActionCheckout || a == ActionExit
}

// Button is a keyboard key. Data is set only for inline buttons.
type Button struct {
	Label string
	Data  string
}

type Keyboard struct {
	Rows   [][]Button
	Inline bool
}

// Screen is one outgoing message. A nil Keyboard leaves the current one in place.
type Screen struct {
	Text     string
	Keyboard *Keyboard
}

// Builder renders screens for one language.
type Builder struct {
	lang    Language
	t       texts
	actions map[string]Action
}

func For(lang Language) (*Builder, error) {
	t, ok := locales[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}

	return &Builder{
		lang: lang,
		t:    t,
		actions: map[string]Action{
			t.browse:       ActionBrowse,
			t.currentOrder: ActionOrder,
			t.checkout:     ActionCheckout,
			t.exit:         ActionExit,
			t.backToMenu:   ActionMenu,
			navNext:        ActionNext,
			navPrev:        ActionPrev,
		},
	}, nil
}

func (b *Builder) Language() Language {
	return b.lang
}

// Action maps a reply keyboard label to its action. Unknown labels, item names
// included, map to ActionNone.
func (b *Builder) Action(label string) Action {
	return b.actions[label]
}

func (b *Builder) Menu(hasOrder bool) Screen {
	rows := [][]Button{{{Label: b.t.browse}}}
	if hasOrder {
		rows = append(rows, []Button{{Label: b.t.currentOrder}}, []Button{{Label: b.t.checkout}})
	} else {
		rows = append(rows, []Button{{Label: b.t.exit}})
	}

	return Screen{Text: b.t.menuPrompt, Keyboard: &Keyboard{Rows: rows}}
}

// ItemPage renders one catalog page. The navigation row is always present.
func (b *Builder) ItemPage(current, total int, rows [][]catalog.Item) Screen {
	keyboard := make([][]Button, 0, len(rows)+1)
	for _, row := range rows {
		buttons := make([]Button, 0, len(row))
		for _, item := range row {
			buttons = append(buttons, Button{Label: item.Name})
		}
		keyboard = append(keyboard, buttons)
	}
	keyboard = append(keyboard, []Button{{Label: navPrev}, {Label: b.t.backToMenu}, {Label: navNext}})

	return Screen{
		Text:     fmt.Sprintf(b.t.pagePrompt, current, total),
		Keyboard: &Keyboard{Rows: keyboard},
	}
}

func (b *Builder) ItemDetail(item catalog.Item) Screen {
	return Screen{
		Text: fmt.Sprintf(b.t.itemDetail, item.Name, item.Price, item.Description),
		Keyboard: &Keyboard{
			Inline: true,
			Rows:   [][]Button{{{Label: b.t.addToOrder, Data: FormatCallback(CallbackAdd, item.ID)}}},
		},
	}
}

func (b *Builder) ItemAdded(name string) string {
	return fmt.Sprintf(b.t.itemAdded, name)
}

func (b *Builder) OrderLine(itemID int64, name string, price int64) Screen {
	return Screen{
		Text: fmt.Sprintf(b.t.orderLine, name, price),
		Keyboard: &Keyboard{
			Inline: true,
			Rows:   [][]Button{{{Label: b.t.removeFromOrder, Data: FormatCallback(CallbackRemove, itemID)}}},
		},
	}
}

func (b *Builder) OrderSummary(total int64) Screen {
	return Screen{
		Text: fmt.Sprintf(b.t.totalPrice, total),
		Keyboard: &Keyboard{Rows: [][]Button{
			{{Label: b.t.browse}},
			{{Label: b.t.checkout}},
		}},
	}
}

// OrderLineRemoved returns the acknowledgement for the removed line's message
// and a fresh summary that replaces the previous one.
func (b *Builder) OrderLineRemoved(name string, total int64) (string, Screen) {
	return fmt.Sprintf(b.t.itemRemoved, name), b.OrderSummary(total)
}

func (b *Builder) InvalidItem() Screen {
	return Screen{Text: b.t.invalidItem}
}

func (b *Builder) Farewell() Screen {
	return Screen{Text: b.t.farewell, Keyboard: closingKeyboard()}
}

func (b *Builder) Purchased(total int64) Screen {
	return Screen{Text: fmt.Sprintf(b.t.purchased, total), Keyboard: closingKeyboard()}
}

func closingKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]Button{{{Label: closingMark}}}}
}

func StartScreen() Screen {
	row := make([]Button, 0, len(languageOrder))
	for _, lang := range languageOrder {
		row = append(row, Button{Label: locales[lang].languageLabel})
	}
	return Screen{Text: startText, Keyboard: &Keyboard{Rows: [][]Button{row}}}
}

func InvalidSession() Screen {
	return Screen{Text: invalidSession}
}

func MissingSession() Screen {
	return Screen{Text: missingSession}
}

func LanguageRejected() Screen {
	return Screen{Text: languageRejected}
}

func Goodbye() Screen {
	return Screen{Text: goodbye, Keyboard: closingKeyboard()}
}

// InternalError is the generic failure text. An unknown language gets the bilingual variant.
func InternalError(lang Language) Screen {
	if t, ok := locales[lang]; ok {
		return Screen{Text: t.internalError}
	}
	return Screen{Text: internalError}
}

// ParseLanguageLabel maps a start screen choice to its language.
func ParseLanguageLabel(label string) (Language, bool) {
	for _, lang := range languageOrder {
		if locales[lang].languageLabel == label {
			return lang, true
		}
	}
	return "", false
}

// EndsSession reports whether label is a checkout or exit label in any language.
// It is used before a language has been chosen.
func EndsSession(label string) bool {
	for _, t := range locales {
		if label == t.checkout || label == t.exit {
			return true
		}
	}
	return false
}

type CallbackKind string

const (
	CallbackAdd    CallbackKind = "add"
	CallbackRemove CallbackKind = "remove"
)

func FormatCallback(kind CallbackKind, itemID int64) string {
	return string(kind) + ":" + strconv.FormatInt(itemID, 10)
}

func ParseCallback(data string) (CallbackKind, int64, error) {
	rawKind, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrBadCallback, data)
	}

	kind := CallbackKind(rawKind)
	if kind != CallbackAdd && kind != CallbackRemove {
		return "", 0, fmt.Errorf("%w: unknown kind %q", ErrBadCallback, rawKind)
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("%w: bad item id %q", ErrBadCallback, rawID)
	}

	return kind, id, nil
}
