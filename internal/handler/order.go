package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/order"
)

// OrderHandler exposes placed orders and staff load to the restaurant back office.
type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// GetOrderByID handles GET /orders/{id}.
func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.svc.GetOrderByID(r.Context(), id)
	if errors.Is(err, order.ErrOrderNotFound) {
		respondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("order_id", id).Msg("handler: failed to get order")
		respondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

// EmployeeLoad handles GET /employees.
func (h *OrderHandler) EmployeeLoad(w http.ResponseWriter, r *http.Request) {
	employees, err := h.svc.EmployeeLoad(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to list employees")
		respondWithError(w, http.StatusInternalServerError, "failed to list employees")
		return
	}

	respondWithJSON(w, http.StatusOK, employees)
}
