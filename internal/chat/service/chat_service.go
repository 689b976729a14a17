// Package service (chat_service.go) implementa o ChatService.
//
// ============================================================
// ARQUITETURA: orquestração do chat da loja
// ============================================================
//
// O ChatService é o orquestrador central da rota POST /api/ai_chat.
//
// Fluxo completo:
//  1. Handler recebe {message, clientId} e chama ProcessMessage()
//  2. Lê o histórico da conversa no ConversationStore
//  3. Histórico vazio → boas-vindas fixas (sem modelo, sem classificador,
//     sem resolver); grava o turno do usuário e o de boas-vindas
//  4. Senão grava o turno do usuário e roda em paralelo (errgroup):
//     - IntentClassifier (keyword ou modelo)
//     - AssistantGateway (resposta do modelo)
//     O Resolver de produtos roda inline, é puro e rápido.
//  5. Gateway falhou → texto de fallback com telefone e email da loja
//  6. Grava a resposta (modelo ou fallback) como turno do assistente
//  7. showForm = hasBuyingIntent && confidence > threshold
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"
	"github.com/lbatal/storefront-assistant-go/internal/chat/port"
	maindomain "github.com/lbatal/storefront-assistant-go/internal/domain"
	"github.com/lbatal/storefront-assistant-go/internal/infra/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// chatTracer é o tracer OpenTelemetry para o módulo de chat.
var chatTracer = otel.Tracer("chat/service")

// llmService é o label de métrica das falhas do modelo.
const llmService = "openrouter"

// ============================================================
// ChatService
// ============================================================

type ChatService struct {
	conversations port.ConversationStore
	classifier    port.IntentClassifier
	gateway       port.AssistantGateway
	resolver      *Resolver

	// store são os dados da loja usados nas boas-vindas e no fallback.
	store maindomain.Store

	// formThreshold: o formulário aparece só com confidence estritamente acima.
	formThreshold float64

	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewChatService cria o ChatService com as dependências injetadas.
func NewChatService(
	conversations port.ConversationStore,
	classifier port.IntentClassifier,
	gateway port.AssistantGateway,
	resolver *Resolver,
	store maindomain.Store,
	formThreshold float64,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		classifier:    classifier,
		gateway:       gateway,
		resolver:      resolver,
		store:         store,
		formThreshold: formThreshold,
		metrics:       metrics,
		logger:        logger,
	}
}

// FallbackReply é o texto usado quando o modelo não responde
// (também usado pelo handler em caso de 500).
func (s *ChatService) FallbackReply() string {
	return FallbackText(s.store)
}

// ProcessMessage é o ponto de entrada principal do chat.
// Só devolve erro em falha inesperada (ex: panic numa goroutine);
// falhas do modelo viram fallback dentro da resposta.
func (s *ChatService) ProcessMessage(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.ProcessMessage")
	defer span.End()
	span.SetAttributes(attribute.String("client.id", req.ClientID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("chat", time.Since(start))
	}()

	history := s.conversations.History(req.ClientID)
	userTurn := domain.Turn{Role: domain.RoleUser, Content: req.Message}

	// --- Primeira mensagem: boas-vindas fixas ---
	if len(history) == 0 {
		welcome := WelcomeText(s.store)
		s.conversations.Append(req.ClientID, userTurn)
		s.conversations.Append(req.ClientID, domain.Turn{Role: domain.RoleAssistant, Content: welcome})

		s.metrics.IncrReply(observability.ReplyWelcome)
		s.metrics.IncrIntent(observability.IntentSkipped)
		s.logger.Info("new conversation",
			zap.String("client_id", req.ClientID),
		)
		return &domain.ChatResponse{Reply: welcome}, nil
	}

	s.conversations.Append(req.ClientID, userTurn)
	fullHistory := append(history, userTurn)

	// --- Resolver inline ---
	resolution := s.resolver.Resolve(req.Message)
	s.metrics.IncrResolverRule(resolution.Rule)

	// --- Classificador ∥ Gateway ---
	var (
		intent domain.IntentResult
		reply  domain.ReplyResult
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer recoverInto(&err, "intent classifier")
		intent = s.classifier.Classify(gCtx, req.Message, history)
		return nil
	})

	g.Go(func() (err error) {
		defer recoverInto(&err, "assistant gateway")
		reply = s.gateway.Reply(gCtx, fullHistory)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("chat processing failed",
			zap.String("client_id", req.ClientID),
			zap.Error(err),
		)
		return nil, err
	}

	// --- Resposta: modelo ou fallback ---
	text := reply.Text
	if reply.OK() {
		s.metrics.IncrReply(observability.ReplyModel)
		s.metrics.RecordTokens(reply.PromptTokens, reply.CompletionTokens)
	} else {
		text = FallbackText(s.store)
		s.metrics.IncrReply(observability.ReplyFallback)
		if reply.Failure != domain.FailureMissingCredential {
			s.metrics.IncrExternalError(llmService)
		}
		s.logger.Warn("using fallback reply",
			zap.String("client_id", req.ClientID),
			zap.String("failure", string(reply.Failure)),
		)
	}
	s.conversations.Append(req.ClientID, domain.Turn{Role: domain.RoleAssistant, Content: text})

	// --- Decisão do formulário ---
	showForm := intent.ShouldShowForm(s.formThreshold)
	s.metrics.IncrIntent(intentOutcome(intent))
	s.metrics.IncrFormDecision(showForm)

	s.logger.Info("chat message processed",
		zap.String("client_id", req.ClientID),
		zap.String("resolver_rule", resolution.Rule),
		zap.Int("products", len(resolution.Products)),
		zap.Bool("buying_intent", intent.HasBuyingIntent),
		zap.Float64("confidence", intent.Confidence),
		zap.Bool("show_form", showForm),
	)

	resp := &domain.ChatResponse{
		Reply:          text,
		ShowForm:       showForm,
		IntentAnalysis: &intent,
	}
	if !resolution.Empty() {
		resp.Products = resolution.Products
	}
	return resp, nil
}

func intentOutcome(r domain.IntentResult) string {
	switch {
	case r.HasBuyingIntent:
		return observability.IntentBuy
	case r.Reasoning == domain.DetectionFailedReasoning && r.Confidence == 0:
		return observability.IntentFailed
	default:
		return observability.IntentNoBuy
	}
}

// recoverInto transforma um panic da goroutine em erro do errgroup,
// senão o processo inteiro cairia.
func recoverInto(err *error, component string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panicked: %v", component, r)
	}
}
