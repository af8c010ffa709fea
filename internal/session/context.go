package session

import (
	"slices"
	"time"

	"github.com/vasiliy-maslov/table-order-bot/internal/catalog"
	"github.com/vasiliy-maslov/table-order-bot/internal/paginator"
	"github.com/vasiliy-maslov/table-order-bot/internal/reply"
)

type State int

const (
	StateLanguage State = iota + 1
	StateMenu
	StateItems
	StateOrder
)

func (s State) String() string {
	switch s {
	case StateLanguage:
		return "language"
	case StateMenu:
		return "menu"
	case StateItems:
		return "items"
	case StateOrder:
		return "order"
	default:
		return "unknown"
	}
}

// Context is the in-memory state of one chat between /start and checkout.
type Context struct {
	ChatID   int64
	State    State
	QRCodeID int64
	Language reply.Language

	// Order holds one item id per unit, duplicates included.
	Order      []int64
	TotalPrice int64

	// Pages is nil until a language is chosen.
	Pages *paginator.Paginator

	// SummaryMessageID is the last "total price" message of the order review.
	SummaryMessageID int

	LastSeen time.Time
}

func (c *Context) Add(item catalog.Item) {
	c.Order = append(c.Order, item.ID)
	c.TotalPrice += item.Price
}

// Remove drops one unit of item. It reports false when the order has none.
func (c *Context) Remove(item catalog.Item) bool {
	i := slices.Index(c.Order, item.ID)
	if i < 0 {
		return false
	}
	c.Order = slices.Delete(c.Order, i, i+1)
	c.TotalPrice -= item.Price
	return true
}

func (c *Context) HasOrder() bool {
	return len(c.Order) > 0
}
