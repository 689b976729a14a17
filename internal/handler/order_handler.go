package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lbatal/storefront-assistant-go/internal/domain"
	"github.com/lbatal/storefront-assistant-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// OrderNotifier is what the order handler needs from the OrderService.
type OrderNotifier interface {
	Notify(ctx context.Context, order *domain.Order) string
}

// ============================================================
// Orders: POST /api/orders
// ============================================================

// orderHandler receives the order form.
//
// Response is always {"success": bool, "message": string}:
//   - 200 with the Darija confirmation for any decodable order
//   - 500 with a generic Darija error when the body does not decode or
//     processing fails unexpectedly
func orderHandler(orders OrderNotifier, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/orders")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				logger.Error("order handler panicked", zap.Any("panic", rec))
				writeOrderError(w)
			}
		}()

		var order domain.Order
		if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("order body decode failed", zap.Error(err))
			writeOrderError(w)
			return
		}
		span.SetAttributes(attribute.String("order.store", order.Store))

		msg := orders.Notify(ctx, &order)
		writeJSON(w, http.StatusOK, domain.OrderResponse{Success: true, Message: msg})
	}
}

func writeOrderError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, domain.OrderResponse{
		Success: false,
		Message: service.OrderErrorMessage,
	})
}
