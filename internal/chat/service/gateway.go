package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lbatal/storefront-assistant-go/internal/catalog"
	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"
	"github.com/lbatal/storefront-assistant-go/internal/chat/port"
	maindomain "github.com/lbatal/storefront-assistant-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Parâmetros da resposta do assistente.
const (
	replyTemperature = 0.7
	replyMaxTokens   = 500
)

// ============================================================
// Gateway: Assistant Gateway
// ============================================================
//
// Monta [system prompt] + histórico completo e chama o modelo.
// Nunca devolve erro: o ReplyResult diz se deu certo e, se não, por quê.
// O ChatService decide o texto de fallback a partir do Failure.

type Gateway struct {
	caller       port.CompletionCaller
	model        string
	systemPrompt string
	logger       *zap.Logger
}

// NewGateway cria o gateway. O prompt de sistema é montado uma vez:
// o catálogo não muda durante a vida do processo.
func NewGateway(caller port.CompletionCaller, cat *catalog.Catalog, model string, logger *zap.Logger) (*Gateway, error) {
	prompt, err := BuildSystemPrompt(cat.Store(), cat.Products())
	if err != nil {
		return nil, err
	}
	return &Gateway{
		caller:       caller,
		model:        model,
		systemPrompt: prompt,
		logger:       logger,
	}, nil
}

// Reply pede ao modelo a próxima resposta para o histórico dado.
// history já inclui o turno atual do usuário.
func (g *Gateway) Reply(ctx context.Context, history []domain.Turn) domain.ReplyResult {
	ctx, span := chatTracer.Start(ctx, "Gateway.Reply")
	defer span.End()

	messages := make([]domain.Turn, 0, len(history)+1)
	messages = append(messages, domain.Turn{Role: domain.RoleSystem, Content: g.systemPrompt})
	messages = append(messages, history...)

	resp, err := g.caller.Complete(ctx, &domain.CompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
	})
	if err != nil {
		failure := ClassifyFailure(err)
		span.SetAttributes(attribute.String("reply.failure", string(failure)))
		g.logger.Warn("assistant reply failed",
			zap.String("failure", string(failure)),
			zap.Error(err),
		)
		return domain.ReplyResult{Failure: failure, Err: err}
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		span.SetAttributes(attribute.String("reply.failure", string(domain.FailureEmptyReply)))
		g.logger.Warn("assistant reply was empty")
		return domain.ReplyResult{
			Failure:          domain.FailureEmptyReply,
			Err:              errors.New("empty reply text"),
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
		}
	}

	return domain.ReplyResult{
		Text:             text,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
	}
}

// ClassifyFailure traduz um erro do CompletionCaller num FailureReason.
func ClassifyFailure(err error) domain.FailureReason {
	var missing *maindomain.ErrMissingCredential
	var open *maindomain.ErrCircuitOpen
	var timeout *maindomain.ErrTimeout
	var ext *maindomain.ErrExternalService

	switch {
	case errors.As(err, &missing):
		return domain.FailureMissingCredential
	case errors.As(err, &open):
		return domain.FailureCircuitOpen
	case errors.Is(err, domain.ErrMalformedCompletion):
		return domain.FailureMalformedResponse
	case errors.As(err, &timeout):
		return domain.FailureTransport
	case errors.As(err, &ext) && ext.StatusCode == http.StatusTooManyRequests:
		return domain.FailureRateLimited
	case errors.As(err, &ext) && ext.StatusCode != 0:
		return domain.FailureUpstreamStatus
	default:
		return domain.FailureTransport
	}
}
