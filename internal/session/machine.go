// Package session drives the ordering conversation of every chat.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/catalog"
	"github.com/vasiliy-maslov/table-order-bot/internal/order"
	"github.com/vasiliy-maslov/table-order-bot/internal/paginator"
	"github.com/vasiliy-maslov/table-order-bot/internal/qrcode"
	"github.com/vasiliy-maslov/table-order-bot/internal/reply"
)

const startCommand = "start"

type Catalog interface {
	FindItemByID(ctx context.Context, id int64) (*catalog.Item, error)
	FindItemByName(ctx context.Context, name string) (*catalog.Item, error)
	ListItems(ctx context.Context) ([]catalog.Item, error)
}

type QRCodes interface {
	Resolve(ctx context.Context, token string) (*qrcode.QRCode, error)
	// Rotate consumes code's token. ErrQRCodeNotFound means someone else already did.
	Rotate(ctx context.Context, code qrcode.QRCode) (*qrcode.QRCode, error)
}

type Orders interface {
	Checkout(ctx context.Context, draft order.Draft) (*order.Order, error)
}

// Messenger delivers screens to a chat.
type Messenger interface {
	// Send returns the id of the sent message.
	Send(ctx context.Context, chatID int64, screen reply.Screen) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, queryID, text string) error
}

// Machine applies events to session contexts. Events of one chat must not be
// handled concurrently, different chats may be.
type Machine struct {
	store     *Store
	catalog   Catalog
	qrcodes   QRCodes
	orders    Orders
	messenger Messenger
}

func NewMachine(store *Store, catalog Catalog, qrcodes QRCodes, orders Orders, messenger Messenger) *Machine {
	return &Machine{
		store:     store,
		catalog:   catalog,
		qrcodes:   qrcodes,
		orders:    orders,
		messenger: messenger,
	}
}

// Handle processes one event. A returned error means the turn was aborted;
// the chat's context is left as it was before the failing step.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case Command:
		if e.Name == startCommand {
			return m.start(ctx, e)
		}
		return m.command(ctx, e)
	case Text:
		return m.text(ctx, e)
	case Callback:
		return m.callback(ctx, e)
	default:
		return fmt.Errorf("session: unsupported event %T", ev)
	}
}

// Language returns the chat's chosen language, empty when there is none.
func (m *Machine) Language(chatID int64) reply.Language {
	sc, ok := m.store.Peek(chatID)
	if !ok {
		return ""
	}
	return sc.Language
}

func (m *Machine) start(ctx context.Context, cmd Command) error {
	token := strings.TrimSpace(cmd.Args)
	if token == "" {
		return m.send(ctx, cmd.ChatID, reply.InvalidSession())
	}

	code, err := m.qrcodes.Resolve(ctx, token)
	if errors.Is(err, qrcode.ErrQRCodeNotFound) {
		log.Info().Int64("chat_id", cmd.ChatID).Msg("session: unknown qrcode token")
		return m.send(ctx, cmd.ChatID, reply.InvalidSession())
	}
	if err != nil {
		return err
	}

	if _, err := m.qrcodes.Rotate(ctx, *code); err != nil {
		if errors.Is(err, qrcode.ErrQRCodeNotFound) {
			log.Info().Int64("chat_id", cmd.ChatID).Int64("qrcode_id", code.ID).Msg("session: qrcode token consumed by another chat")
			return m.send(ctx, cmd.ChatID, reply.InvalidSession())
		}
		return err
	}

	m.store.Put(&Context{
		ChatID:   cmd.ChatID,
		State:    StateLanguage,
		QRCodeID: code.ID,
	})
	log.Info().Int64("chat_id", cmd.ChatID).Int64("qrcode_id", code.ID).Msg("session: started")

	return m.send(ctx, cmd.ChatID, reply.StartScreen())
}

// command answers any command other than /start with the current state's prompt.
func (m *Machine) command(ctx context.Context, cmd Command) error {
	sc, ok := m.store.Get(cmd.ChatID)
	if !ok {
		return m.send(ctx, cmd.ChatID, reply.MissingSession())
	}
	log.Debug().Int64("chat_id", cmd.ChatID).Str("command", cmd.Name).Msg("session: command ignored")

	if sc.State == StateLanguage {
		return m.send(ctx, sc.ChatID, reply.StartScreen())
	}

	b, err := reply.For(sc.Language)
	if err != nil {
		return fmt.Errorf("session: chat %d: %w", sc.ChatID, err)
	}

	switch sc.State {
	case StateMenu:
		return m.send(ctx, sc.ChatID, b.Menu(sc.HasOrder()))
	case StateItems:
		return m.showPage(ctx, sc, b)
	case StateOrder:
		return m.send(ctx, sc.ChatID, b.OrderSummary(sc.TotalPrice))
	}
	return fmt.Errorf("session: chat %d in unexpected state %s", sc.ChatID, sc.State)
}

func (m *Machine) text(ctx context.Context, ev Text) error {
	sc, ok := m.store.Get(ev.ChatID)
	if !ok {
		return m.send(ctx, ev.ChatID, reply.MissingSession())
	}

	if sc.State == StateLanguage {
		return m.chooseLanguage(ctx, sc, ev.Text)
	}

	b, err := reply.For(sc.Language)
	if err != nil {
		return fmt.Errorf("session: chat %d: %w", sc.ChatID, err)
	}

	action := b.Action(ev.Text)
	if action.Ends() {
		return m.checkout(ctx, sc, b)
	}

	switch sc.State {
	case StateMenu:
		switch action {
		case reply.ActionBrowse:
			return m.showPage(ctx, sc, b)
		case reply.ActionOrder:
			return m.showOrder(ctx, sc, b)
		}
		return m.send(ctx, sc.ChatID, b.Menu(sc.HasOrder()))

	case StateItems:
		switch action {
		case reply.ActionMenu:
			if err := m.send(ctx, sc.ChatID, b.Menu(sc.HasOrder())); err != nil {
				return err
			}
			sc.State = StateMenu
			return nil
		case reply.ActionNext:
			return m.turnPage(ctx, sc, b, paginator.MoveNext)
		case reply.ActionPrev:
			return m.turnPage(ctx, sc, b, paginator.MovePrev)
		case reply.ActionNone:
			return m.showItem(ctx, sc, b, ev.Text)
		}
		return m.showPage(ctx, sc, b)

	case StateOrder:
		if action == reply.ActionBrowse {
			return m.showPage(ctx, sc, b)
		}
		return m.send(ctx, sc.ChatID, b.OrderSummary(sc.TotalPrice))
	}

	return fmt.Errorf("session: chat %d in unexpected state %s", sc.ChatID, sc.State)
}

func (m *Machine) chooseLanguage(ctx context.Context, sc *Context, label string) error {
	lang, ok := reply.ParseLanguageLabel(label)
	if !ok {
		m.store.Delete(sc.ChatID)
		if reply.EndsSession(label) {
			log.Info().Int64("chat_id", sc.ChatID).Msg("session: left before choosing language")
			return m.send(ctx, sc.ChatID, reply.Goodbye())
		}
		log.Info().Int64("chat_id", sc.ChatID).Str("input", label).Msg("session: language rejected")
		return m.send(ctx, sc.ChatID, reply.LanguageRejected())
	}

	b, err := reply.For(lang)
	if err != nil {
		return err
	}

	items, err := m.catalog.ListItems(ctx)
	if err != nil {
		return err
	}

	if err := m.send(ctx, sc.ChatID, b.Menu(sc.HasOrder())); err != nil {
		return err
	}

	sc.Language = lang
	sc.Pages = paginator.New(items)
	sc.State = StateMenu
	return nil
}

func (m *Machine) showPage(ctx context.Context, sc *Context, b *reply.Builder) error {
	if err := m.send(ctx, sc.ChatID, b.ItemPage(sc.Pages.Current(), sc.Pages.TotalPages(), sc.Pages.Rows())); err != nil {
		return err
	}
	sc.State = StateItems
	return nil
}

// turnPage moves the snapshot and shows the new page. The move is undone when
// the page could not be sent.
func (m *Machine) turnPage(ctx context.Context, sc *Context, b *reply.Builder, move paginator.Move) error {
	var moved bool
	switch move {
	case paginator.MoveNext:
		moved = sc.Pages.Next()
	case paginator.MovePrev:
		moved = sc.Pages.Prev()
	}

	err := m.showPage(ctx, sc, b)
	if err != nil && moved {
		if move == paginator.MoveNext {
			sc.Pages.Prev()
		} else {
			sc.Pages.Next()
		}
	}
	return err
}

func (m *Machine) showItem(ctx context.Context, sc *Context, b *reply.Builder, name string) error {
	item, err := m.catalog.FindItemByName(ctx, name)
	if errors.Is(err, catalog.ErrItemNotFound) {
		return m.send(ctx, sc.ChatID, b.InvalidItem())
	}
	if err != nil {
		return err
	}

	return m.send(ctx, sc.ChatID, b.ItemDetail(*item))
}

// resolveOrder looks every ordered unit up again. Units whose item left the
// catalog are dropped; the total is recomputed from the survivors.
func (m *Machine) resolveOrder(ctx context.Context, sc *Context) ([]catalog.Item, int64, error) {
	items := make([]catalog.Item, 0, len(sc.Order))
	var total int64
	for _, id := range sc.Order {
		item, err := m.catalog.FindItemByID(ctx, id)
		if errors.Is(err, catalog.ErrItemNotFound) {
			log.Warn().Int64("chat_id", sc.ChatID).Int64("item_id", id).Msg("session: ordered item is gone from catalog")
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *item)
		total += item.Price
	}
	return items, total, nil
}

func setOrder(sc *Context, items []catalog.Item, total int64) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	sc.Order = ids
	sc.TotalPrice = total
}

func (m *Machine) showOrder(ctx context.Context, sc *Context, b *reply.Builder) error {
	items, total, err := m.resolveOrder(ctx, sc)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := m.send(ctx, sc.ChatID, b.OrderLine(item.ID, item.Name, item.Price)); err != nil {
			return err
		}
	}

	summaryID, err := m.messenger.Send(ctx, sc.ChatID, b.OrderSummary(total))
	if err != nil {
		return err
	}

	setOrder(sc, items, total)
	sc.State = StateOrder
	sc.SummaryMessageID = summaryID
	return nil
}

func (m *Machine) checkout(ctx context.Context, sc *Context, b *reply.Builder) error {
	if !sc.HasOrder() {
		m.store.Delete(sc.ChatID)
		log.Info().Int64("chat_id", sc.ChatID).Msg("session: closed without order")
		return m.send(ctx, sc.ChatID, b.Farewell())
	}

	placed, err := m.orders.Checkout(ctx, order.Draft{
		QRCodeID:   sc.QRCodeID,
		ItemIDs:    slices.Clone(sc.Order),
		TotalPrice: sc.TotalPrice,
	})
	if errors.Is(err, order.ErrUnknownItem) {
		return m.dropVanished(ctx, sc, b)
	}
	if err != nil {
		return err
	}

	m.store.Delete(sc.ChatID)
	log.Info().Int64("chat_id", sc.ChatID).Int64("order_id", placed.ID).Int64("total_price", placed.TotalPrice).Msg("session: order placed")

	return m.send(ctx, sc.ChatID, b.Purchased(placed.TotalPrice))
}

// dropVanished handles a checkout rejected because an ordered item no longer
// exists. The order is pruned and shown again. When nothing is left, or the
// rejection names no item the catalog is missing, the session ends.
func (m *Machine) dropVanished(ctx context.Context, sc *Context, b *reply.Builder) error {
	items, total, err := m.resolveOrder(ctx, sc)
	if err != nil {
		return err
	}

	if len(items) == 0 || len(items) == len(sc.Order) {
		m.store.Delete(sc.ChatID)
		log.Warn().Int64("chat_id", sc.ChatID).Ints64("order", sc.Order).Msg("session: order cannot be placed, session closed")
		if err := m.send(ctx, sc.ChatID, b.InvalidItem()); err != nil {
			return err
		}
		return m.send(ctx, sc.ChatID, b.Farewell())
	}

	setOrder(sc, items, total)
	if err := m.send(ctx, sc.ChatID, b.InvalidItem()); err != nil {
		return err
	}
	return m.showOrder(ctx, sc, b)
}

func (m *Machine) callback(ctx context.Context, ev Callback) error {
	sc, ok := m.store.Get(ev.ChatID)
	if !ok || sc.State == StateLanguage {
		return m.messenger.AnswerCallback(ctx, ev.QueryID, "")
	}

	b, err := reply.For(sc.Language)
	if err != nil {
		return fmt.Errorf("session: chat %d: %w", sc.ChatID, err)
	}

	if err := m.messenger.AnswerCallback(ctx, ev.QueryID, ""); err != nil {
		log.Warn().Err(err).Int64("chat_id", ev.ChatID).Msg("session: failed to answer callback")
	}

	kind, id, err := reply.ParseCallback(ev.Data)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", ev.ChatID).Msg("session: bad callback")
		return m.send(ctx, sc.ChatID, b.InvalidItem())
	}

	switch {
	case kind == reply.CallbackAdd && sc.State == StateItems:
		return m.addItem(ctx, sc, b, ev.MessageID, id)
	case kind == reply.CallbackRemove && sc.State == StateOrder:
		return m.removeItem(ctx, sc, b, ev.MessageID, id)
	}

	return m.send(ctx, sc.ChatID, b.InvalidItem())
}

func (m *Machine) addItem(ctx context.Context, sc *Context, b *reply.Builder, messageID int, id int64) error {
	item, err := m.catalog.FindItemByID(ctx, id)
	if errors.Is(err, catalog.ErrItemNotFound) {
		return m.send(ctx, sc.ChatID, b.InvalidItem())
	}
	if err != nil {
		return err
	}

	if err := m.messenger.Edit(ctx, sc.ChatID, messageID, b.ItemAdded(item.Name)); err != nil {
		return err
	}
	sc.Add(*item)
	return nil
}

// removeItem commits the removal once the line message says so. A failure to
// post the new summary after that leaves the order edited.
func (m *Machine) removeItem(ctx context.Context, sc *Context, b *reply.Builder, messageID int, id int64) error {
	item, err := m.catalog.FindItemByID(ctx, id)
	if errors.Is(err, catalog.ErrItemNotFound) {
		return m.send(ctx, sc.ChatID, b.InvalidItem())
	}
	if err != nil {
		return err
	}

	if !slices.Contains(sc.Order, item.ID) {
		return m.send(ctx, sc.ChatID, b.InvalidItem())
	}

	ack, summary := b.OrderLineRemoved(item.Name, sc.TotalPrice-item.Price)
	if err := m.messenger.Edit(ctx, sc.ChatID, messageID, ack); err != nil {
		return err
	}
	sc.Remove(*item)

	if sc.SummaryMessageID != 0 {
		if err := m.messenger.Delete(ctx, sc.ChatID, sc.SummaryMessageID); err != nil {
			log.Warn().Err(err).Int64("chat_id", sc.ChatID).Int("message_id", sc.SummaryMessageID).Msg("session: failed to delete old summary")
		}
	}

	summaryID, err := m.messenger.Send(ctx, sc.ChatID, summary)
	if err != nil {
		return err
	}
	sc.SummaryMessageID = summaryID
	return nil
}

func (m *Machine) send(ctx context.Context, chatID int64, screen reply.Screen) error {
	_, err := m.messenger.Send(ctx, chatID, screen)
	return err
}
