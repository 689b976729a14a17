// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/lbatal/storefront-assistant-go/internal/domain"
)

// Mailer delivers an email. Implemented by the SMTP adapter.
type Mailer interface {
	Send(ctx context.Context, msg *domain.EmailMessage) error
}
