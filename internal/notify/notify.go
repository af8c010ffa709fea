// Package notify announces placed orders to the kitchen over RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/order"
)

// OrderPlacedEvent is the JSON body published for every committed order.
type OrderPlacedEvent struct {
	OrderID    int64     `json:"order_id"`
	QRCodeID   int64     `json:"qrcode_id"`
	EmployeeID int64     `json:"employee_id"`
	TotalPrice int64     `json:"total_price"`
	ItemIDs    []int64   `json:"item_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewOrderPlacedEvent(o *order.Order) OrderPlacedEvent {
	itemIDs := make([]int64, 0, len(o.OrderItems))
	for _, line := range o.OrderItems {
		itemIDs = append(itemIDs, line.ItemID)
	}

	return OrderPlacedEvent{
		OrderID:    o.ID,
		QRCodeID:   o.QRCodeID,
		EmployeeID: o.EmployeeID,
		TotalPrice: o.TotalPrice,
		ItemIDs:    itemIDs,
		CreatedAt:  o.CreatedAt.UTC(),
	}
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends order events to a durable fanout exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string

	// amqp.Channel нельзя использовать из нескольких горутин одновременно.
	mu sync.Mutex
}

var _ order.Notifier = (*Publisher)(nil)

func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("notify: failed to declare exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("Connected to RabbitMQ")
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) OrderPlaced(ctx context.Context, o *order.Order) error {
	body, err := json.Marshal(NewOrderPlacedEvent(o))
	if err != nil {
		return fmt.Errorf("notify: failed to encode order %d: %w", o.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		MessageId:    fmt.Sprintf("order-%d", o.ID),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("notify: failed to publish order %d: %w", o.ID, err)
	}

	log.Debug().Int64("order_id", o.ID).Str("exchange", p.exchange).Msg("notify: order published")
	return nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	log.Info().Msg("RabbitMQ connection closed")
}

// Nop is used when no broker is configured.
type Nop struct{}

var _ order.Notifier = Nop{}

func (Nop) OrderPlaced(context.Context, *order.Order) error { return nil }
