package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var ErrEmptyOrder = errors.New("order must contain at least one item")

// Notifier is told about every committed order.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *Order) error
}

type Service interface {
	Checkout(ctx context.Context, draft Draft) (*Order, error)
	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	EmployeeLoad(ctx context.Context) ([]Employee, error)
}

type service struct {
	orderRepo Repository
	notifier  Notifier
}

func NewService(orderRepo Repository, notifier Notifier) Service {
	return &service{
		orderRepo: orderRepo,
		notifier:  notifier,
	}
}

func (s *service) Checkout(ctx context.Context, draft Draft) (*Order, error) {
	if len(draft.ItemIDs) == 0 {
		log.Warn().Int64("qrcode_id", draft.QRCodeID).Msg("service: attempt to check out an empty order")
		return nil, ErrEmptyOrder
	}

	if draft.TotalPrice < 0 {
		return nil, fmt.Errorf("service: total price cannot be negative, got %d", draft.TotalPrice)
	}

	orderInput := &Order{
		TotalPrice: draft.TotalPrice,
		QRCodeID:   draft.QRCodeID,
		OrderItems: make([]OrderItem, 0, len(draft.ItemIDs)),
	}
	for _, itemID := range draft.ItemIDs {
		orderInput.OrderItems = append(orderInput.OrderItems, OrderItem{ItemID: itemID})
	}

	if err := s.orderRepo.CreateOrder(ctx, orderInput); err != nil {
		if errors.Is(err, ErrNoEmployees) || errors.Is(err, ErrUnknownItem) {
			log.Error().Err(err).Int64("qrcode_id", draft.QRCodeID).Msg("service: order rejected by repository")
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Int64("order_id", orderInput.ID).
		Int64("employee_id", orderInput.EmployeeID).
		Int64("qrcode_id", orderInput.QRCodeID).
		Int64("total_price", orderInput.TotalPrice).
		Int("items", len(orderInput.OrderItems)).
		Msg("service: order created successfully")

	// заказ уже сохранён, поэтому ошибка уведомления его не отменяет
	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, orderInput); err != nil {
			log.Error().Err(err).Int64("order_id", orderInput.ID).Msg("service: failed to publish order placed event")
		}
	}

	return orderInput, nil
}

func (s *service) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Int64("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	return order, nil
}

func (s *service) EmployeeLoad(ctx context.Context) ([]Employee, error) {
	employees, err := s.orderRepo.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list employees: %w", err)
	}
	return employees, nil
}
