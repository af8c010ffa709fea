package qrcode

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/gofrs/uuid"
	goqrcode "github.com/skip2/go-qrcode"
)

// Renderer turns a deep link into an image.
type Renderer interface {
	Render(content string) ([]byte, error)
}

// PNGRenderer renders square PNG images of Size pixels.
type PNGRenderer struct {
	Size  int
	Level goqrcode.RecoveryLevel
}

func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{Size: 512, Level: goqrcode.Medium}
}

func (r *PNGRenderer) Render(content string) ([]byte, error) {
	png, err := goqrcode.Encode(content, r.Level, r.Size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: failed to encode png: %w", err)
	}
	return png, nil
}

// DeepLink is the Telegram link that starts the bot with the table token.
func DeepLink(botUsername string, token uuid.UUID) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", url.PathEscape(botUsername), token)
}

// PageURL is the address of the table's printable page. baseURL may be empty.
func PageURL(baseURL string, id int64) string {
	return baseURL + "/qrcode/" + strconv.FormatInt(id, 10)
}
