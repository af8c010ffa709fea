package order

import "time"

type OrderItem struct {
	ID      int64 `json:"id" db:"id"`
	OrderID int64 `json:"order_id" db:"order_id"`
	ItemID  int64 `json:"item_id" db:"item_id"`
}

type Order struct {
	ID         int64       `json:"id" db:"id"`
	TotalPrice int64       `json:"total_price" db:"total_price"`
	CustomerID *int64      `json:"customer_id,omitempty" db:"customer_id"` // покупатели пока анонимные
	QRCodeID   int64       `json:"qrcode_id" db:"qrcode_id"`
	EmployeeID int64       `json:"employee_id" db:"employee_id"`
	OrderItems []OrderItem `json:"order_items" db:"-"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

type Employee struct {
	ID         int64   `json:"id" db:"id"`
	Salary     float64 `json:"salary" db:"salary"`
	OrderCount int     `json:"order_count" db:"order_count"`
}

// Draft is what a chat session hands over at checkout: one item id per unit.
type Draft struct {
	QRCodeID   int64
	ItemIDs    []int64
	TotalPrice int64
}
