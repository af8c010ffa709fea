package handler

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/qrcode"
)

// StaticPrefix is where QR images are served from.
const StaticPrefix = "/static/qrcodes/"

var pageTemplate = template.Must(template.New("qrcode").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>Table {{.ID}}</title>
	<style>
		body { display: flex; flex-direction: column; align-items: center; font-family: sans-serif; }
		img { width: 80vmin; max-width: 512px; }
	</style>
</head>
<body>
	<h1>Table {{.ID}}</h1>
	<img src="{{.ImageURL}}" alt="QR code for table {{.ID}}">
	<p>Scan to order / Отсканируйте, чтобы сделать заказ</p>
</body>
</html>
`))

type QRCodeHandler struct {
	svc     qrcode.Service
	baseURL string
}

// NewQRCodeHandler creates a handler. baseURL prefixes page links in the table list and may be empty.
func NewQRCodeHandler(svc qrcode.Service, baseURL string) *QRCodeHandler {
	return &QRCodeHandler{svc: svc, baseURL: baseURL}
}

// Page handles GET /qrcode/{id}: an HTML page showing the table's current code.
func (h *QRCodeHandler) Page(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid qrcode id", http.StatusBadRequest)
		return
	}

	if _, err := os.Stat(h.svc.ImagePath(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "qrcode not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("qrcode_id", id).Msg("handler: failed to stat qrcode image")
		http.Error(w, "failed to load qrcode", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// картинка меняется при каждом скане
	w.Header().Set("Cache-Control", "no-store")

	data := struct {
		ID       int64
		ImageURL string
	}{
		ID:       id,
		ImageURL: ImageURL(id),
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Error().Err(err).Int64("qrcode_id", id).Msg("handler: failed to render qrcode page")
	}
}

// tableView не содержит токен: по ссылке из списка можно начать сессию не сидя за столом.
type tableView struct {
	ID       int64  `json:"id"`
	PageURL  string `json:"page_url"`
	ImageURL string `json:"image_url"`
}

// List handles GET /qrcodes.
func (h *QRCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.svc.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to list qrcodes")
		respondWithError(w, http.StatusInternalServerError, "failed to list qrcodes")
		return
	}

	tables := make([]tableView, 0, len(codes))
	for _, code := range codes {
		tables = append(tables, tableView{
			ID:       code.ID,
			PageURL:  qrcode.PageURL(h.baseURL, code.ID),
			ImageURL: ImageURL(code.ID),
		})
	}

	respondWithJSON(w, http.StatusOK, tables)
}

func ImageURL(id int64) string {
	return StaticPrefix + strconv.FormatInt(id, 10) + ".png"
}
