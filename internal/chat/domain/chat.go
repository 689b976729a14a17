// Package domain (chat.go) define os tipos usados pela rota POST /api/ai_chat.
//
// Essa rota é a "porta de entrada" do chat da loja. A página manda a mensagem
// do cliente e um clientId opaco; o serviço devolve a resposta em Darija,
// os produtos relevantes e a decisão de mostrar (ou não) o formulário de pedido.
//
// O fluxo completo:
//  1. Página manda {message, clientId} → handler valida
//  2. ChatService lê o histórico da conversa (ConversationStore)
//  3. Primeira mensagem → boas-vindas fixas, sem chamar o modelo
//  4. Senão: classificador de intenção ∥ gateway do assistente, resolver de produtos inline
//  5. Resposta combinada {reply, showForm, products, intentAnalysis}
package domain

import (
	"errors"

	maindomain "github.com/lbatal/storefront-assistant-go/internal/domain"
)

// ============================================================
// Chat: Request/Response entre a página e o serviço
// ============================================================

// ChatRequest é o body que a página envia no POST /api/ai_chat.
type ChatRequest struct {
	Message  string `json:"message"`
	ClientID string `json:"clientId"`
}

// ChatResponse é o que o serviço devolve pra página.
//
// Products é nil (JSON null) quando nenhum produto é relevante.
// IntentAnalysis é omitido quando a classificação não rodou (boas-vindas).
type ChatResponse struct {
	Reply          string               `json:"reply"`
	ShowForm       bool                 `json:"showForm"`
	Products       []maindomain.Product `json:"products"`
	IntentAnalysis *IntentResult        `json:"intentAnalysis,omitempty"`
}

// ============================================================
// Conversa: turnos append-only por clientId
// ============================================================

// Role identifica quem falou num turno.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn é uma mensagem trocada na conversa. Nunca é editado depois de gravado.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ============================================================
// Intenção de compra
// ============================================================

// IntentResult é o resultado do classificador, criado a cada mensagem.
// Confidence fica sempre em [0,1].
type IntentResult struct {
	HasBuyingIntent bool    `json:"hasBuyingIntent"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
}

// DetectionFailedReasoning é o reasoning do resultado seguro usado quando
// a classificação delegada falha por qualquer motivo.
const DetectionFailedReasoning = "detection failed"

// SafeDefaultIntent é o resultado devolvido quando o classificador delegado falha.
// Com confidence 0 o formulário nunca aparece.
func SafeDefaultIntent() IntentResult {
	return IntentResult{
		HasBuyingIntent: false,
		Confidence:      0.0,
		Reasoning:       DetectionFailedReasoning,
	}
}

// ShouldShowForm aplica a regra de decisão do formulário:
// intenção de compra E confiança estritamente acima do threshold.
func (r IntentResult) ShouldShowForm(threshold float64) bool {
	return r.HasBuyingIntent && r.Confidence > threshold
}

// ============================================================
// Gateway: resultado tipado da chamada ao modelo
// ============================================================

// FailureReason classifica por que o gateway não conseguiu uma resposta.
// Vazio significa sucesso.
type FailureReason string

const (
	FailureNone              FailureReason = ""
	FailureMissingCredential FailureReason = "missing_credential"
	FailureRateLimited       FailureReason = "rate_limited"
	FailureUpstreamStatus    FailureReason = "upstream_status"
	FailureCircuitOpen       FailureReason = "circuit_open"
	FailureTransport         FailureReason = "transport"
	FailureMalformedResponse FailureReason = "malformed_response"
	FailureEmptyReply        FailureReason = "empty_reply"
)

// ReplyResult carrega ou o texto do modelo ou o motivo da falha.
// Quem chama decide o texto de fallback; o gateway nunca devolve erro cru.
type ReplyResult struct {
	Text    string
	Failure FailureReason
	Err     error

	// Tokens consumidos; zero quando o modelo não respondeu.
	PromptTokens     int
	CompletionTokens int
}

// ErrMalformedCompletion indica um body 2xx que não segue o contrato
// de chat completions (JSON inválido ou sem choices).
var ErrMalformedCompletion = errors.New("malformed completion response")

// OK indica que o modelo respondeu com texto utilizável.
func (r ReplyResult) OK() bool {
	return r.Failure == FailureNone
}

// ============================================================
// Completion: Request/Response entre o serviço e a API de modelos
// ============================================================

// CompletionRequest é o payload provider-agnostic enviado ao modelo.
type CompletionRequest struct {
	Model       string
	Messages    []Turn
	Temperature float32
	MaxTokens   int
}

// CompletionResponse é a resposta mínima que o serviço precisa do modelo.
type CompletionResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}
