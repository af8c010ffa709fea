package qrcode

import "github.com/gofrs/uuid"

// QRCode is the token of a physical table. UUID changes on every session start.
type QRCode struct {
	ID   int64     `json:"id" db:"id"`
	UUID uuid.UUID `json:"uuid" db:"uuid"`
}
