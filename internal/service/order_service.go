package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/lbatal/storefront-assistant-go/internal/domain"
	"github.com/lbatal/storefront-assistant-go/internal/infra/observability"
	"github.com/lbatal/storefront-assistant-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/orders")

// OrderErrorMessage is returned to the customer when an order cannot be processed.
const OrderErrorMessage = "Sma7 lina, kayn mochkil f système. 3ayet lina b téléphone."

// defaultProductLabel is used in the confirmation when no product is attached.
const defaultProductLabel = "produit"

// DefaultEmailTimeout bounds one notification email, dial included.
const DefaultEmailTimeout = 20 * time.Second

// OrderService turns a submitted order form into a customer confirmation
// and a best-effort email to the store staff.
type OrderService struct {
	mailer       port.Mailer
	recipient    string
	emailTimeout time.Duration
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewOrderService creates the notifier. A nil mailer disables email.
// A non-positive emailTimeout means DefaultEmailTimeout.
func NewOrderService(mailer port.Mailer, recipient string, emailTimeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *OrderService {
	if emailTimeout <= 0 {
		emailTimeout = DefaultEmailTimeout
	}
	return &OrderService{
		mailer:       mailer,
		recipient:    recipient,
		emailTimeout: emailTimeout,
		metrics:      metrics,
		logger:       logger,
	}
}

// Notify emails the staff when email is configured and returns the Darija
// confirmation. Any decoded order is accepted; the confirmation never
// depends on the email outcome.
func (s *OrderService) Notify(ctx context.Context, order *domain.Order) string {
	ctx, span := tracer.Start(ctx, "OrderService.Notify")
	defer span.End()

	ref := uuid.NewString()
	span.SetAttributes(attribute.String("order.ref", ref))
	if strings.TrimSpace(order.Timestamp) == "" {
		order.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	productName := ""
	if order.Product != nil {
		productName = order.Product.Name
	}
	s.logger.Info("order received",
		zap.String("order_ref", ref),
		zap.String("store", order.Store),
		zap.String("product", productName),
	)

	s.metrics.IncrOrder(s.sendEmail(ctx, ref, order))

	return Confirmation(order)
}

// sendEmail attempts the staff notification and returns the email outcome.
// Failures are logged and swallowed: no retry, no outbox.
func (s *OrderService) sendEmail(ctx context.Context, ref string, order *domain.Order) string {
	if s.mailer == nil || s.recipient == "" {
		s.logger.Debug("email notification disabled", zap.String("order_ref", ref))
		return observability.EmailSkipped
	}

	body, err := RenderOrderEmail(ref, order)
	if err != nil {
		s.logger.Warn("order email render failed", zap.String("order_ref", ref), zap.Error(err))
		return observability.EmailFailed
	}

	ctx, cancel := context.WithTimeout(ctx, s.emailTimeout)
	defer cancel()

	start := time.Now()
	err = s.mailer.Send(ctx, &domain.EmailMessage{
		To:       s.recipient,
		Subject:  fmt.Sprintf("New Order from %s [%s]", order.Name, shortRef(ref)),
		HTMLBody: body,
	})
	s.metrics.RecordRequestDuration("email", time.Since(start))
	if err != nil {
		s.metrics.IncrExternalError("smtp")
		s.logger.Warn("order email failed",
			zap.String("order_ref", ref),
			zap.Error(err),
		)
		return observability.EmailFailed
	}

	s.logger.Info("order email sent", zap.String("order_ref", ref))
	return observability.EmailSent
}

// Confirmation is the Darija message shown to the customer after ordering.
func Confirmation(order *domain.Order) string {
	product := defaultProductLabel
	if order.Product != nil && strings.TrimSpace(order.Product.Name) != "" {
		product = order.Product.Name
	}
	return fmt.Sprintf(
		"Baraka Allah fik a %s! Commande dyal %s wslat 3andna. "+
			"Ghadi ntslo bik f wa9t 9rib bach n2akkdo les détails. Shokran 3la thi9atk fina!",
		order.Name, product,
	)
}

func shortRef(ref string) string {
	if len(ref) > 8 {
		return ref[:8]
	}
	return ref
}

// ============================================================
// Email body
// ============================================================

var orderEmailTmpl = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>New order</h2>
  <p style="color:#666;">Reference: {{.Ref}}</p>

  <h3>Customer</h3>
  <table cellpadding="4">
    <tr><td><b>Name</b></td><td>{{.Order.Name}}</td></tr>
    <tr><td><b>Phone</b></td><td>{{.Order.Phone}}</td></tr>
    {{- if .Order.Email}}
    <tr><td><b>Email</b></td><td>{{.Order.Email}}</td></tr>
    {{- end}}
    <tr><td><b>Address</b></td><td>{{.Order.Address}}</td></tr>
    <tr><td><b>Store</b></td><td>{{.Order.Store}}</td></tr>
  </table>
  {{- with .Order.Product}}

  <h3>Product</h3>
  <table cellpadding="4">
    <tr><td><b>Name</b></td><td>{{.Name}}</td></tr>
    <tr><td><b>Category</b></td><td>{{.Category}}</td></tr>
    <tr><td><b>Price</b></td><td>{{printf "%.2f" .Price}} {{.Currency}}</td></tr>
    <tr><td><b>ID</b></td><td>{{.ID}}</td></tr>
  </table>
  {{- end}}

  <p style="color:#666;">Ordered at {{.Order.Timestamp}}</p>
</body>
</html>
`))

// RenderOrderEmail renders the staff email body. Customer input is HTML-escaped.
func RenderOrderEmail(ref string, order *domain.Order) (string, error) {
	var buf bytes.Buffer
	err := orderEmailTmpl.Execute(&buf, struct {
		Ref   string
		Order *domain.Order
	}{Ref: ref, Order: order})
	if err != nil {
		return "", fmt.Errorf("render order email: %w", err)
	}
	return buf.String(), nil
}
