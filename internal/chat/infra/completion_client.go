package infra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"
	maindomain "github.com/lbatal/storefront-assistant-go/internal/domain"
	"github.com/lbatal/storefront-assistant-go/internal/infra/resilience"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// tracer é o tracer OpenTelemetry para o módulo chat/infra.
var tracer = otel.Tracer("chat/infra")

// CompletionService é o nome usado nos erros e métricas deste client.
const CompletionService = "openrouter"

// CredentialName é a variável de ambiente que carrega a chave da API.
const CredentialName = "OPENROUTER_API_KEY"

// chatCompletionAPI é o pedaço do go-openai que o client usa.
type chatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ============================================================
// CompletionClient: chat completions OpenAI-compatible (OpenRouter)
// ============================================================
//
// Contrato:
//
//	POST {baseURL}/chat/completions
//	Authorization: Bearer <OPENROUTER_API_KEY>
//	Request:  {"model": "...", "messages": [...], "temperature": 0.7, "max_tokens": 500}
//	Response: {"choices": [{"message": {"content": "..."}}], "usage": {...}}
//
// Usado tanto pelo gateway do assistente quanto pelo classificador de intenção.
// Sem chave configurada, nenhuma chamada de rede é feita.

type CompletionClient struct {
	api      chatCompletionAPI
	hasKey   bool
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	cfg      resilience.Config
}

// NewCompletionClient cria o client. baseURL é a raiz OpenAI-compatible
// (ex: https://openrouter.ai/api/v1), sem /chat/completions no final.
func NewCompletionClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *CompletionClient {
	oc := openai.DefaultConfig(apiKey)
	oc.BaseURL = baseURL
	oc.HTTPClient = httpClient

	return &CompletionClient{
		api:      openai.NewClientWithConfig(oc),
		hasKey:   apiKey != "",
		cb:       cb,
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:      cfg,
	}
}

// Complete envia a conversa ao modelo e devolve o texto do primeiro choice.
//
// Erros possíveis (o gateway traduz cada um num FailureReason):
//   - *ErrMissingCredential: chave não configurada
//   - *ErrCircuitOpen: breaker aberto
//   - *ErrTimeout: deadline do contexto estourou
//   - *ErrExternalService com StatusCode: resposta não-2xx
//   - *ErrExternalService envolvendo ErrMalformedCompletion: body inválido
//   - *ErrExternalService sem status: falha de transporte
func (c *CompletionClient) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "CompletionClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	if !c.hasKey {
		err := &maindomain.ErrMissingCredential{Name: CredentialName}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, &maindomain.ErrTimeout{Operation: "completion bulkhead"}
	}
	defer c.bulkhead.Release()

	apiReq := toOpenAIRequest(req)

	// Breaker por fora, retry por dentro: uma rajada de retries conta
	// como uma única falha para o breaker.
	result, err := c.cb.Execute(func() (any, error) {
		var resp openai.ChatCompletionResponse
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var callErr error
			resp, callErr = c.api.CreateChatCompletion(ctx, apiReq)
			if callErr == nil {
				return nil
			}
			if !retryable(callErr) {
				return resilience.Permanent(callErr)
			}
			return callErr
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return resp, nil
	})
	if err != nil {
		mapped := mapCompletionError(ctx, err)
		span.RecordError(mapped)
		span.SetStatus(codes.Error, mapped.Error())
		return nil, mapped
	}

	resp := result.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		err := &maindomain.ErrExternalService{Service: CompletionService, Err: domain.ErrMalformedCompletion}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.prompt", resp.Usage.PromptTokens),
		attribute.Int("llm.tokens.completion", resp.Usage.CompletionTokens),
	)

	return &domain.CompletionResponse{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func toOpenAIRequest(req *domain.CompletionRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, t := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

// upstreamStatus extrai o status HTTP de um erro do go-openai (0 se não houver).
func upstreamStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func isMalformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// retryable: falhas de transporte, 429 e 5xx. Body inválido e 4xx não.
func retryable(err error) bool {
	// Status primeiro: um RequestError não-2xx também embrulha o erro de JSON do body.
	if status := upstreamStatus(err); status != 0 {
		return status == http.StatusTooManyRequests || status >= 500
	}
	return !isMalformed(err)
}

func mapCompletionError(ctx context.Context, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &maindomain.ErrCircuitOpen{Service: CompletionService}
	}
	if status := upstreamStatus(err); status != 0 {
		return &maindomain.ErrExternalService{Service: CompletionService, StatusCode: status, Err: err}
	}
	if isMalformed(err) {
		return &maindomain.ErrExternalService{Service: CompletionService, Err: errors.Join(domain.ErrMalformedCompletion, err)}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &maindomain.ErrTimeout{Operation: "completion"}
	}
	return &maindomain.ErrExternalService{Service: CompletionService, Err: err}
}
