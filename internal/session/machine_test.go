package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/table-order-bot/internal/catalog"
	"github.com/vasiliy-maslov/table-order-bot/internal/order"
	"github.com/vasiliy-maslov/table-order-bot/internal/reply"
)

const (
	testChat  int64 = 1001
	testToken       = "6f1c1d0e-3a55-4f7b-9a43-3a1d1bb0c2f1"
	testTable int64 = 7
)

type harness struct {
	t         *testing.T
	store     *Store
	catalog   *fakeCatalog
	qrcodes   *fakeQRCodes
	orders    *fakeOrders
	messenger *fakeMessenger
	machine   *Machine
	eng       *reply.Builder
}

func newHarness(t *testing.T, items []catalog.Item) *harness {
	t.Helper()
	eng, err := reply.For(reply.English)
	require.NoError(t, err)

	h := &harness{
		t:         t,
		store:     NewStore(),
		catalog:   &fakeCatalog{items: items},
		qrcodes:   newFakeQRCodes(map[string]int64{testToken: testTable}),
		orders:    &fakeOrders{},
		messenger: &fakeMessenger{},
		eng:       eng,
	}
	h.machine = NewMachine(h.store, h.catalog, h.qrcodes, h.orders, h.messenger)
	return h
}

func (h *harness) handle(ev Event) {
	h.t.Helper()
	require.NoError(h.t, h.machine.Handle(context.Background(), ev))
}

func (h *harness) text(s string) {
	h.t.Helper()
	h.handle(Text{ChatID: testChat, Text: s})
}

func (h *harness) callback(messageID int, data string) {
	h.t.Helper()
	h.handle(Callback{ChatID: testChat, QueryID: "q", MessageID: messageID, Data: data})
}

// begin runs /start and picks English, leaving the chat in the menu.
func (h *harness) begin() {
	h.t.Helper()
	h.handle(Command{ChatID: testChat, Name: "start", Args: testToken})
	h.text("English")
}

func (h *harness) context() *Context {
	h.t.Helper()
	sc, ok := h.store.Peek(testChat)
	require.True(h.t, ok, "session must exist")
	return sc
}

func (h *harness) lastText() string {
	return h.messenger.last().screen.Text
}

func TestMachine_FullOrderFlow(t *testing.T) {
	h := newHarness(t, menuItems(20))

	h.handle(Command{ChatID: testChat, Name: "start", Args: testToken})
	assert.Equal(t, reply.StartScreen(), h.messenger.last().screen)
	assert.Equal(t, []int64{testTable}, h.qrcodes.rotated)
	assert.Equal(t, StateLanguage, h.context().State)

	h.text("English")
	assert.Equal(t, h.eng.Menu(false), h.messenger.last().screen)
	assert.Equal(t, StateMenu, h.context().State)
	assert.Equal(t, reply.English, h.machine.Language(testChat))

	h.text("Items to buy")
	assert.Equal(t, StateItems, h.context().State)
	assert.Equal(t, "Select item to view.\nCurrent page: 1/3", h.lastText())

	h.text(">")
	h.text(">")
	assert.Equal(t, "Select item to view.\nCurrent page: 3/3", h.lastText())
	h.text(">")
	assert.Equal(t, "Select item to view.\nCurrent page: 3/3", h.lastText())
	assert.Len(t, h.context().Pages.Page(), 2)

	h.text("<")
	assert.Equal(t, 2, h.context().Pages.Current())

	h.text("Item 12")
	detail := h.messenger.last()
	assert.Equal(t, h.eng.ItemDetail(h.catalog.items[11]), detail.screen)

	h.callback(detail.id, "add:12")
	require.Len(t, h.messenger.edits, 1)
	assert.Equal(t, editedMessage{chatID: testChat, id: detail.id, text: "Successfully added Item 12 to order."}, h.messenger.edits[0])

	h.text("Item 3")
	h.callback(h.messenger.last().id, "add:3")
	assert.Equal(t, []int64{12, 3}, h.context().Order)
	assert.Equal(t, int64(150), h.context().TotalPrice)

	h.text("Back to menu")
	assert.Equal(t, h.eng.Menu(true), h.messenger.last().screen)

	sentBefore := len(h.messenger.sent)
	h.text("Current order")
	assert.Equal(t, StateOrder, h.context().State)
	review := h.messenger.sent[sentBefore:]
	require.Len(t, review, 3)
	assert.Equal(t, h.eng.OrderLine(12, "Item 12", 120), review[0].screen)
	assert.Equal(t, h.eng.OrderLine(3, "Item 3", 30), review[1].screen)
	assert.Equal(t, h.eng.OrderSummary(150), review[2].screen)
	assert.Equal(t, review[2].id, h.context().SummaryMessageID)

	h.text("Checkout")
	assert.Equal(t, h.eng.Purchased(150), h.messenger.last().screen)
	require.Len(t, h.orders.drafts, 1)
	assert.Equal(t, order.Draft{QRCodeID: testTable, ItemIDs: []int64{12, 3}, TotalPrice: 150}, h.orders.drafts[0])
	assert.Zero(t, h.store.Len())
}

func TestMachine_StartRejections(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{name: "no_argument", args: ""},
		{name: "blank_argument", args: "   "},
		{name: "unknown_token", args: "0d3f1a52-1111-4c3b-8d0e-6b2f3f9b4e11"},
		{name: "garbage", args: "table-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, menuItems(3))

			h.handle(Command{ChatID: testChat, Name: "start", Args: tt.args})

			assert.Equal(t, reply.InvalidSession(), h.messenger.last().screen)
			assert.Zero(t, h.store.Len())
			assert.Empty(t, h.qrcodes.rotated)
		})
	}
}

func TestMachine_StartTokenIsSingleUse(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.begin()

	h.handle(Command{ChatID: 2002, Name: "start", Args: testToken})
	assert.Equal(t, reply.InvalidSession(), h.messenger.last().screen)
	_, ok := h.store.Peek(2002)
	assert.False(t, ok)
	assert.Len(t, h.qrcodes.rotated, 1)
}

func TestMachine_StartRestartsSession(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.begin()
	h.text("Items to buy")
	h.text("Item 1")
	h.callback(h.messenger.last().id, "add:1")

	var token string
	for tok := range h.qrcodes.tokens {
		token = tok
	}
	h.handle(Command{ChatID: testChat, Name: "start", Args: token})

	sc := h.context()
	assert.Equal(t, StateLanguage, sc.State)
	assert.Empty(t, sc.Order)
	assert.Zero(t, sc.TotalPrice)
}

func TestMachine_PriceInvariantUnderRandomEdits(t *testing.T) {
	items := menuItems(12)
	h := newHarness(t, items)
	h.begin()
	h.text("Items to buy")

	rng := rand.New(rand.NewPCG(7, 42))
	for step := 0; step < 200; step++ {
		sc := h.context()
		item := items[rng.IntN(len(items))]

		if rng.IntN(3) > 0 {
			if sc.State != StateItems {
				h.text("Items to buy")
			}
			h.text(item.Name)
			h.callback(h.messenger.last().id, reply.FormatCallback(reply.CallbackAdd, item.ID))
		} else {
			if sc.State != StateOrder {
				h.text("Back to menu")
				h.text("Current order")
			}
			h.callback(h.messenger.last().id, reply.FormatCallback(reply.CallbackRemove, item.ID))
		}

		sc = h.context()
		var want int64
		for _, id := range sc.Order {
			want += items[id-1].Price
		}
		require.Equal(t, want, sc.TotalPrice, "step %d", step)
	}
}

func TestMachine_RemoveReplacesSummary(t *testing.T) {
	h := newHarness(t, menuItems(5))
	h.begin()
	h.text("Items to buy")
	for _, name := range []string{"Item 2", "Item 2", "Item 5"} {
		h.text(name)
		h.callback(h.messenger.last().id, "add:"+name[len(name)-1:])
	}
	h.text("Back to menu")
	h.text("Current order")
	oldSummary := h.context().SummaryMessageID
	firstLine := h.messenger.sent[len(h.messenger.sent)-4]

	h.callback(firstLine.id, "remove:2")

	assert.Equal(t, []int64{2, 5}, h.context().Order)
	assert.Equal(t, int64(70), h.context().TotalPrice)
	assert.Equal(t, "Successfully deleted Item 2 from order.", h.messenger.edits[len(h.messenger.edits)-1].text)
	assert.Equal(t, []int{oldSummary}, h.messenger.deleted)
	assert.Equal(t, h.eng.OrderSummary(70), h.messenger.last().screen)
	assert.Equal(t, h.messenger.last().id, h.context().SummaryMessageID)
}

func TestMachine_EmptyCheckout(t *testing.T) {
	for _, label := range []string{"Exit", "Checkout"} {
		t.Run(label, func(t *testing.T) {
			h := newHarness(t, menuItems(3))
			h.begin()

			h.text(label)

			assert.Equal(t, h.eng.Farewell(), h.messenger.last().screen)
			assert.Empty(t, h.orders.drafts)
			assert.Zero(t, h.store.Len())
		})
	}
}

func TestMachine_NonNavigationTextKeepsPage(t *testing.T) {
	h := newHarness(t, menuItems(20))
	h.begin()
	h.text("Items to buy")
	h.text(">")

	for _, input := range []string{"Borscht", ">>", "next", "Current order"} {
		h.text(input)
		assert.Equal(t, 2, h.context().Pages.Current(), "input %q", input)
		assert.Equal(t, StateItems, h.context().State)
	}
	assert.Equal(t, h.eng.InvalidItem(), h.messenger.sent[len(h.messenger.sent)-4].screen)
}

func TestMachine_StorageErrorKeepsSession(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.handle(Command{ChatID: testChat, Name: "start", Args: testToken})

	h.catalog.err = errors.New("connection reset")
	err := h.machine.Handle(context.Background(), Text{ChatID: testChat, Text: "English"})
	require.Error(t, err)
	assert.Equal(t, StateLanguage, h.context().State)
	assert.Empty(t, h.context().Language)

	h.catalog.err = nil
	h.text("English")
	assert.Equal(t, StateMenu, h.context().State)
}

func TestMachine_CheckoutStorageFailureKeepsOrder(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.begin()
	h.text("Items to buy")
	h.text("Item 1")
	h.callback(h.messenger.last().id, "add:1")
	h.text("Back to menu")

	h.orders.err = order.ErrNoEmployees
	err := h.machine.Handle(context.Background(), Text{ChatID: testChat, Text: "Checkout"})
	assert.ErrorIs(t, err, order.ErrNoEmployees)
	assert.Equal(t, []int64{1}, h.context().Order)

	h.orders.err = nil
	h.text("Checkout")
	assert.Equal(t, h.eng.Purchased(10), h.messenger.last().screen)
	assert.Zero(t, h.store.Len())
}

func TestMachine_CheckoutDropsVanishedItems(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.begin()
	h.text("Items to buy")
	h.text("Item 1")
	h.callback(h.messenger.last().id, "add:1")
	h.text("Item 2")
	h.callback(h.messenger.last().id, "add:2")

	h.catalog.items = h.catalog.items[:1]
	h.orders.err = order.ErrUnknownItem
	sent := len(h.messenger.sent)
	h.text("Checkout")

	got := h.messenger.sent[sent:]
	require.Len(t, got, 3)
	assert.Equal(t, h.eng.InvalidItem(), got[0].screen)
	assert.Equal(t, h.eng.OrderLine(1, "Item 1", 10), got[1].screen)
	assert.Equal(t, h.eng.OrderSummary(10), got[2].screen)

	sc := h.context()
	assert.Equal(t, StateOrder, sc.State)
	assert.Equal(t, []int64{1}, sc.Order)
	assert.Equal(t, int64(10), sc.TotalPrice)

	h.orders.err = nil
	h.text("Checkout")
	assert.Equal(t, h.eng.Purchased(10), h.messenger.last().screen)
	require.Len(t, h.orders.drafts, 1)
	assert.Equal(t, []int64{1}, h.orders.drafts[0].ItemIDs)
	assert.Zero(t, h.store.Len())
}

func TestMachine_CheckoutRejectedEndsSession(t *testing.T) {
	tests := []struct {
		name  string
		keep  int
		label string
	}{
		{name: "every_item_gone", keep: 0, label: "Checkout"},
		{name: "nothing_to_drop", keep: 3, label: "Checkout"},
		{name: "exit_with_nothing_to_drop", keep: 3, label: "Exit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, menuItems(3))
			h.begin()
			h.text("Items to buy")
			h.text("Item 1")
			h.callback(h.messenger.last().id, "add:1")
			h.text("Back to menu")

			h.catalog.items = h.catalog.items[:tt.keep]
			h.orders.err = order.ErrUnknownItem
			h.text(tt.label)

			n := len(h.messenger.sent)
			assert.Equal(t, h.eng.InvalidItem(), h.messenger.sent[n-2].screen)
			assert.Equal(t, h.eng.Farewell(), h.messenger.sent[n-1].screen)
			assert.Zero(t, h.store.Len())

			h.text("Exit")
			assert.Equal(t, reply.MissingSession(), h.messenger.last().screen)
		})
	}
}

func TestMachine_LanguageSelection(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  reply.Screen
	}{
		{name: "garbled", input: "Deutsch", want: reply.LanguageRejected()},
		{name: "exit_before_language", input: "Выход", want: reply.Goodbye()},
		{name: "checkout_before_language", input: "Checkout", want: reply.Goodbye()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, menuItems(3))
			h.handle(Command{ChatID: testChat, Name: "start", Args: testToken})

			h.text(tt.input)

			assert.Equal(t, tt.want, h.messenger.last().screen)
			assert.Zero(t, h.store.Len())
		})
	}
}

func TestMachine_RussianSession(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.handle(Command{ChatID: testChat, Name: "start", Args: testToken})
	h.text("Русский")

	rus, err := reply.For(reply.Russian)
	require.NoError(t, err)
	assert.Equal(t, rus.Menu(false), h.messenger.last().screen)

	// английские подписи в русской сессии не работают
	h.text("Items to buy")
	assert.Equal(t, StateMenu, h.context().State)
	assert.Equal(t, rus.Menu(false), h.messenger.last().screen)

	h.text("Предметы для покупки")
	assert.Equal(t, StateItems, h.context().State)
}

func TestMachine_NoSession(t *testing.T) {
	h := newHarness(t, menuItems(3))

	h.text("Items to buy")
	assert.Equal(t, reply.MissingSession(), h.messenger.last().screen)

	h.handle(Command{ChatID: testChat, Name: "help"})
	assert.Equal(t, reply.MissingSession(), h.messenger.last().screen)

	sent := len(h.messenger.sent)
	h.callback(5, "add:1")
	assert.Len(t, h.messenger.sent, sent)
	assert.Equal(t, []string{"q"}, h.messenger.answers)
	assert.Zero(t, h.store.Len())
}

func TestMachine_StaleCallbacks(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.begin()

	tests := []struct {
		name string
		prep []string
		data string
	}{
		{name: "add_in_menu", data: "add:1"},
		{name: "remove_while_browsing", prep: []string{"Items to buy"}, data: "remove:1"},
		{name: "unknown_item", data: "add:99"},
		{name: "malformed", data: "add:x"},
		{name: "remove_absent", prep: []string{"Back to menu", "Current order"}, data: "remove:2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, input := range tt.prep {
				h.text(input)
			}
			before := *h.context()

			h.callback(1, tt.data)

			assert.Equal(t, h.eng.InvalidItem(), h.messenger.last().screen)
			after := h.context()
			assert.Equal(t, before.State, after.State)
			assert.Empty(t, after.Order)
			assert.Zero(t, after.TotalPrice)
		})
	}
}

func TestMachine_CallbackBeforeLanguageIsIgnored(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.handle(Command{ChatID: testChat, Name: "start", Args: testToken})
	sent := len(h.messenger.sent)

	h.callback(1, "add:1")

	assert.Len(t, h.messenger.sent, sent)
	assert.Equal(t, StateLanguage, h.context().State)
}

func TestMachine_UnmatchedTextRepromptsState(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.begin()

	h.text("hello")
	assert.Equal(t, h.eng.Menu(false), h.messenger.last().screen)

	h.text("Current order")
	h.text("hello")
	assert.Equal(t, h.eng.OrderSummary(0), h.messenger.last().screen)
	assert.Equal(t, StateOrder, h.context().State)

	h.text("Items to buy")
	assert.Equal(t, StateItems, h.context().State)
}

func TestMachine_OrderReviewDropsVanishedItems(t *testing.T) {
	h := newHarness(t, menuItems(3))
	h.begin()
	h.text("Items to buy")
	h.text("Item 2")
	h.callback(h.messenger.last().id, "add:2")
	h.text("Item 3")
	h.callback(h.messenger.last().id, "add:3")

	h.catalog.items = h.catalog.items[:2]
	sent := len(h.messenger.sent)
	h.text("Back to menu")
	h.text("Current order")

	review := h.messenger.sent[sent+1:]
	require.Len(t, review, 2)
	assert.Equal(t, h.eng.OrderLine(2, "Item 2", 20), review[0].screen)
	assert.Equal(t, h.eng.OrderSummary(20), review[1].screen)

	sc := h.context()
	assert.Equal(t, []int64{2}, sc.Order)
	assert.Equal(t, int64(20), sc.TotalPrice)
}

func TestMachine_ConcurrentScansOfOneToken(t *testing.T) {
	h := newHarness(t, menuItems(3))
	const other int64 = 2002

	// второй гость успевает отсканировать тот же код между Resolve и Rotate первого
	h.qrcodes.beforeRotate = func() {
		h.handle(Command{ChatID: other, Name: "start", Args: testToken})
	}
	h.handle(Command{ChatID: testChat, Name: "start", Args: testToken})

	_, ok := h.store.Peek(other)
	assert.True(t, ok)
	_, ok = h.store.Peek(testChat)
	assert.False(t, ok)
	assert.Equal(t, 1, h.store.Len())
	assert.Equal(t, []int64{testTable}, h.qrcodes.rotated)

	var toFirst []reply.Screen
	for _, msg := range h.messenger.sent {
		if msg.chatID == testChat {
			toFirst = append(toFirst, msg.screen)
		}
	}
	assert.Equal(t, []reply.Screen{reply.InvalidSession()}, toFirst)
}

func TestMachine_FailedDeliveryKeepsContext(t *testing.T) {
	down := errors.New("telegram down")

	t.Run("menu_to_items", func(t *testing.T) {
		h := newHarness(t, menuItems(3))
		h.begin()

		h.messenger.sendErr = down
		err := h.machine.Handle(context.Background(), Text{ChatID: testChat, Text: "Items to buy"})
		assert.ErrorIs(t, err, down)
		assert.Equal(t, StateMenu, h.context().State)
	})

	t.Run("page_turn", func(t *testing.T) {
		h := newHarness(t, menuItems(20))
		h.begin()
		h.text("Items to buy")

		h.messenger.sendErr = down
		err := h.machine.Handle(context.Background(), Text{ChatID: testChat, Text: ">"})
		assert.ErrorIs(t, err, down)
		assert.Equal(t, 1, h.context().Pages.Current())

		h.messenger.sendErr = nil
		h.text(">")
		assert.Equal(t, 2, h.context().Pages.Current())
	})

	t.Run("order_review", func(t *testing.T) {
		h := newHarness(t, menuItems(3))
		h.begin()

		h.messenger.sendErr = down
		err := h.machine.Handle(context.Background(), Text{ChatID: testChat, Text: "Current order"})
		assert.ErrorIs(t, err, down)
		assert.Equal(t, StateMenu, h.context().State)
	})

	t.Run("add_not_confirmed", func(t *testing.T) {
		h := newHarness(t, menuItems(3))
		h.begin()
		h.text("Items to buy")
		h.text("Item 1")

		h.messenger.editErr = down
		err := h.machine.Handle(context.Background(), Callback{ChatID: testChat, QueryID: "q", MessageID: h.messenger.last().id, Data: "add:1"})
		assert.ErrorIs(t, err, down)
		assert.Empty(t, h.context().Order)
		assert.Zero(t, h.context().TotalPrice)
	})

	t.Run("remove_not_confirmed", func(t *testing.T) {
		h := newHarness(t, menuItems(3))
		h.begin()
		h.text("Items to buy")
		h.text("Item 1")
		h.callback(h.messenger.last().id, "add:1")
		h.text("Back to menu")
		h.text("Current order")

		h.messenger.editErr = down
		err := h.machine.Handle(context.Background(), Callback{ChatID: testChat, QueryID: "q", MessageID: 1, Data: "remove:1"})
		assert.ErrorIs(t, err, down)
		assert.Equal(t, []int64{1}, h.context().Order)
		assert.Equal(t, int64(10), h.context().TotalPrice)
	})
}

func TestMachine_CommandsRepromptState(t *testing.T) {
	h := newHarness(t, menuItems(3))
	help := Command{ChatID: testChat, Name: "help"}

	h.handle(Command{ChatID: testChat, Name: "start", Args: testToken})
	h.handle(help)
	assert.Equal(t, reply.StartScreen(), h.messenger.last().screen)
	assert.Equal(t, StateLanguage, h.context().State)

	h.text("English")
	h.handle(help)
	assert.Equal(t, h.eng.Menu(false), h.messenger.last().screen)

	h.text("Items to buy")
	h.handle(help)
	assert.Equal(t, h.eng.ItemPage(1, 1, h.context().Pages.Rows()), h.messenger.last().screen)
	assert.Equal(t, StateItems, h.context().State)

	h.text("Back to menu")
	h.text("Current order")
	h.handle(Command{ChatID: testChat, Name: "menu", Args: "now"})
	assert.Equal(t, h.eng.OrderSummary(0), h.messenger.last().screen)
	assert.Equal(t, StateOrder, h.context().State)
}
