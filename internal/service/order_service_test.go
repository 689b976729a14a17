package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lbatal/storefront-assistant-go/internal/domain"
	"github.com/lbatal/storefront-assistant-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock ---

type mockMailer struct {
	sent []*domain.EmailMessage
	err  error
}

func (m *mockMailer) Send(_ context.Context, msg *domain.EmailMessage) error {
	m.sent = append(m.sent, msg)
	return m.err
}

// stalledMailer blocks until its context ends, like an SMTP server that
// stopped answering mid-conversation.
type stalledMailer struct{}

func (stalledMailer) Send(ctx context.Context, _ *domain.EmailMessage) error {
	<-ctx.Done()
	return &domain.ErrTimeout{Operation: "smtp send"}
}

func validOrder() *domain.Order {
	return &domain.Order{
		Name:    "Youssef",
		Phone:   "0661000000",
		Address: "Hay Mohammadi, Casablanca",
		Store:   "Sidi Moumen",
		Product: &domain.OrderProduct{ID: 1, Name: "iPhone 12", Price: 4200, Currency: "MAD", Category: "phone"},
	}
}

// --- Tests ---

func TestNotify_SendsEmailAndConfirms(t *testing.T) {
	mailer := &mockMailer{}
	metrics := observability.NewMetrics()
	svc := NewOrderService(mailer, "admin@lbatal.ma", 0, metrics, zap.NewNop())

	msg := svc.Notify(context.Background(), validOrder())

	assert.Contains(t, msg, "Baraka Allah fik a Youssef! Commande dyal iPhone 12 wslat 3andna.")
	require.Len(t, mailer.sent, 1)

	email := mailer.sent[0]
	assert.Equal(t, "admin@lbatal.ma", email.To)
	assert.Contains(t, email.Subject, "New Order from Youssef")
	for _, want := range []string{"Youssef", "0661000000", "Sidi Moumen", "iPhone 12", "4200.00 MAD"} {
		assert.Contains(t, email.HTMLBody, want)
	}

	snap := metrics.GetAssistantSnapshot()
	assert.Equal(t, int64(1), snap.OrdersReceived)
	assert.Zero(t, snap.EmailFailures)
}

func TestNotify_MailerFailureStillConfirms(t *testing.T) {
	mailer := &mockMailer{err: errors.New("smtp down")}
	metrics := observability.NewMetrics()
	svc := NewOrderService(mailer, "admin@lbatal.ma", 0, metrics, zap.NewNop())

	msg := svc.Notify(context.Background(), validOrder())

	assert.Contains(t, msg, "Youssef")
	assert.Equal(t, int64(1), metrics.GetAssistantSnapshot().EmailFailures)
}

func TestNotify_EmailDisabled(t *testing.T) {
	svc := NewOrderService(nil, "", 0, observability.NewMetrics(), zap.NewNop())

	assert.NotEmpty(t, svc.Notify(context.Background(), validOrder()))
}

func TestNotify_WithoutProduct(t *testing.T) {
	order := validOrder()
	order.Product = nil

	msg := NewOrderService(nil, "", 0, observability.NewMetrics(), zap.NewNop()).Notify(context.Background(), order)
	assert.Contains(t, msg, "Commande dyal produit")
}

func TestNotify_PartialOrderStillConfirms(t *testing.T) {
	// Only name and product filled in, and the email fails.
	mailer := &mockMailer{err: errors.New("smtp down")}
	order := &domain.Order{
		Name:    "Ali",
		Product: &domain.OrderProduct{ID: 2, Name: "AirPods Pro", Price: 1500, Currency: "MAD", Category: "earbuds"},
	}

	msg := NewOrderService(mailer, "admin@lbatal.ma", 0, observability.NewMetrics(), zap.NewNop()).Notify(context.Background(), order)

	assert.Contains(t, msg, "Baraka Allah fik a Ali! Commande dyal AirPods Pro wslat 3andna.")
	assert.Len(t, mailer.sent, 1)
}

func TestNotify_EmailTimeoutBoundsConfirmation(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := NewOrderService(stalledMailer{}, "admin@lbatal.ma", 30*time.Millisecond, metrics, zap.NewNop())

	start := time.Now()
	msg := svc.Notify(context.Background(), validOrder())

	require.Less(t, time.Since(start), 2*time.Second, "confirmation waited on a stalled mailer")
	assert.Contains(t, msg, "Youssef")
	assert.Equal(t, int64(1), metrics.GetAssistantSnapshot().EmailFailures)
}

func TestRenderOrderEmail_EscapesInput(t *testing.T) {
	order := validOrder()
	order.Name = "<script>alert(1)</script>"
	order.Timestamp = "2026-10-18T10:00:00Z"

	body, err := RenderOrderEmail("ref-1", order)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "2026-10-18T10:00:00Z")
}
