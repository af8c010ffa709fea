package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/handler"
)

// NewRouter wires the QR pages, the static image directory and the back office endpoints.
func NewRouter(qrcodes *handler.QRCodeHandler, orders *handler.OrderHandler, qrcodeDir string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Get("/qrcode/{id}", qrcodes.Page)
	r.Get("/qrcodes", qrcodes.List)
	r.Handle(handler.StaticPrefix+"*", http.StripPrefix(handler.StaticPrefix, http.FileServer(http.Dir(qrcodeDir))))

	r.Get("/orders/{id}", orders.GetOrderByID)
	r.Get("/employees", orders.EmployeeLoad)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()

		next.ServeHTTP(ww, r)
	})
}
