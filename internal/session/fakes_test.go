package session

import (
	"context"
	"slices"
	"strconv"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/table-order-bot/internal/catalog"
	"github.com/vasiliy-maslov/table-order-bot/internal/order"
	"github.com/vasiliy-maslov/table-order-bot/internal/qrcode"
	"github.com/vasiliy-maslov/table-order-bot/internal/reply"
)

type fakeCatalog struct {
	items []catalog.Item
	err   error
}

func (f *fakeCatalog) FindItemByID(_ context.Context, id int64) (*catalog.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, item := range f.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, catalog.ErrItemNotFound
}

func (f *fakeCatalog) FindItemByName(_ context.Context, name string) (*catalog.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, item := range f.items {
		if item.Name == name {
			return &item, nil
		}
	}
	return nil, catalog.ErrItemNotFound
}

func (f *fakeCatalog) ListItems(context.Context) ([]catalog.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.items), nil
}

type fakeQRCodes struct {
	tokens  map[string]int64
	rotated []int64
	err     error
	// beforeRotate runs once, before the next swap.
	beforeRotate func()
}

func newFakeQRCodes(tokens map[string]int64) *fakeQRCodes {
	return &fakeQRCodes{tokens: tokens}
}

func (f *fakeQRCodes) Resolve(_ context.Context, token string) (*qrcode.QRCode, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.tokens[token]
	if !ok {
		return nil, qrcode.ErrQRCodeNotFound
	}
	return &qrcode.QRCode{ID: id, UUID: uuid.FromStringOrNil(token)}, nil
}

func (f *fakeQRCodes) Rotate(_ context.Context, code qrcode.QRCode) (*qrcode.QRCode, error) {
	if hook := f.beforeRotate; hook != nil {
		f.beforeRotate = nil
		hook()
	}

	current := code.UUID.String()
	if owner, ok := f.tokens[current]; !ok || owner != code.ID {
		return nil, qrcode.ErrQRCodeNotFound
	}
	delete(f.tokens, current)

	next := uuid.Must(uuid.NewV4())
	f.tokens[next.String()] = code.ID
	f.rotated = append(f.rotated, code.ID)
	return &qrcode.QRCode{ID: code.ID, UUID: next}, nil
}

type fakeOrders struct {
	drafts []order.Draft
	err    error
}

func (f *fakeOrders) Checkout(_ context.Context, draft order.Draft) (*order.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.drafts = append(f.drafts, draft)
	return &order.Order{ID: int64(len(f.drafts)), QRCodeID: draft.QRCodeID, TotalPrice: draft.TotalPrice}, nil
}

type sentMessage struct {
	chatID int64
	id     int
	screen reply.Screen
}

type editedMessage struct {
	chatID int64
	id     int
	text   string
}

type fakeMessenger struct {
	nextID  int
	sent    []sentMessage
	edits   []editedMessage
	deleted []int
	answers []string
	sendErr error
	editErr error
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, screen reply.Screen) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, id: f.nextID, screen: screen})
	return f.nextID, nil
}

func (f *fakeMessenger) Edit(_ context.Context, chatID int64, messageID int, text string) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editedMessage{chatID: chatID, id: messageID, text: text})
	return nil
}

func (f *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, queryID, _ string) error {
	f.answers = append(f.answers, queryID)
	return nil
}

func (f *fakeMessenger) last() sentMessage {
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

func menuItems(n int) []catalog.Item {
	items := make([]catalog.Item, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, catalog.Item{
			ID:          int64(i),
			Name:        "Item " + strconv.Itoa(i),
			Description: "Dish number " + strconv.Itoa(i),
			Price:       int64(i * 10),
		})
	}
	return items
}
