package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNoEmployees   = errors.New("no employees to assign the order to")
	ErrUnknownItem   = errors.New("order references an unknown item or table")
)

type Repository interface {
	// CreateOrder assigns the order to the least loaded employee and stores it
	// with its items in one transaction. IDs, EmployeeID and CreatedAt are filled in.
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateOrder(ctx context.Context, orderInput *Order) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Int64("qrcode_id", orderInput.QRCodeID).Msg("Panic recovered during CreateOrder, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Int64("qrcode_id", orderInput.QRCodeID).Msg("Transaction for CreateOrder failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				log.Error().Err(commitErr).Int64("order_id", orderInput.ID).Msg("Failed to commit transaction")
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	// 1. Наименее загруженный сотрудник. FOR UPDATE тут не хватит: после ожидания
	// блокировки Postgres не пересортирует строки, поэтому сериализуем выбор целиком.
	if _, err = tx.Exec(ctx, `LOCK TABLE employees IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("repository: failed to lock employees: %w", err)
	}

	queryEmployee := `
		SELECT id
		FROM employees
		ORDER BY order_count, id
		LIMIT 1
	`
	var employeeID int64
	if err = tx.QueryRow(ctx, queryEmployee).Scan(&employeeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNoEmployees
			return err
		}
		return fmt.Errorf("repository: failed to select employee: %w", err)
	}

	// 2. Счётчик заказов сотрудника
	if _, err = tx.Exec(ctx, `UPDATE employees SET order_count = order_count + 1 WHERE id = $1`, employeeID); err != nil {
		return fmt.Errorf("repository: failed to increment order count of employee %d: %w", employeeID, err)
	}
	orderInput.EmployeeID = employeeID

	// 3. Заказ
	queryOrder := `
		INSERT INTO orders (total_price, customer_id, qrcode_id, employee_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err = tx.QueryRow(ctx, queryOrder,
		orderInput.TotalPrice,
		orderInput.CustomerID,
		orderInput.QRCodeID,
		employeeID,
	).Scan(&orderInput.ID, &orderInput.CreatedAt)
	if err != nil {
		return mapConstraintError(fmt.Errorf("repository: failed to insert order: %w", err))
	}

	// 4. Позиции заказа, по строке на единицу товара
	queryItem := `
		INSERT INTO order_items (order_id, item_id)
		VALUES ($1, $2)
		RETURNING id
	`
	for i := range orderInput.OrderItems {
		item := &orderInput.OrderItems[i]
		item.OrderID = orderInput.ID

		if err = tx.QueryRow(ctx, queryItem, item.OrderID, item.ItemID).Scan(&item.ID); err != nil {
			return mapConstraintError(fmt.Errorf("repository: failed to insert order item for order %d: %w", orderInput.ID, err))
		}
	}

	return nil
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrUnknownItem, pgErr.ConstraintName)
	}
	return err
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, orderID int64) (*Order, error) {
	queryOrder := `
		SELECT id, total_price, customer_id, qrcode_id, employee_id, created_at
		FROM orders
		WHERE id = $1
	`

	var order Order
	err := r.db.QueryRow(ctx, queryOrder, orderID).Scan(
		&order.ID,
		&order.TotalPrice,
		&order.CustomerID,
		&order.QRCodeID,
		&order.EmployeeID,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %d: %w", orderID, err)
	}

	queryOrderItems := `
		SELECT id, order_id, item_id
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, queryOrderItems, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order id %d: %w", orderID, err)
	}
	defer rows.Close()

	orderItems := make([]OrderItem, 0)
	for rows.Next() {
		var orderItem OrderItem
		if err := rows.Scan(&orderItem.ID, &orderItem.OrderID, &orderItem.ItemID); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order id %d: %w", orderID, err)
		}
		orderItems = append(orderItems, orderItem)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order id %d: %w", orderID, err)
	}

	order.OrderItems = orderItems

	return &order, nil
}

func (r *postgresRepository) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.db.Query(ctx, `SELECT id, salary, order_count FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query employees: %w", err)
	}
	defer rows.Close()

	employees := make([]Employee, 0)
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Salary, &e.OrderCount); err != nil {
			return nil, fmt.Errorf("repository: failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating employees: %w", err)
	}

	return employees, nil
}
