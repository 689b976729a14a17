// Package port (chat_port.go) define as interfaces (ports) que o ChatService usa.
//
// Seguindo a arquitetura hexagonal, o ChatService depende dessas interfaces
// e NÃO dos clients concretos. Isso facilita testes e troca de implementação
// (ex: classificador por keywords vs. classificador delegado ao modelo).
package port

import (
	"context"

	chatdomain "github.com/lbatal/storefront-assistant-go/internal/chat/domain"
)

// CompletionCaller é a interface para chamar a API de chat completions.
// O client concreto (CompletionClient) implementa essa interface.
type CompletionCaller interface {
	Complete(ctx context.Context, req *chatdomain.CompletionRequest) (*chatdomain.CompletionResponse, error)
}

// IntentClassifier decide se a mensagem expressa intenção de compra.
// Implementações nunca devolvem erro: falhas viram um resultado seguro.
type IntentClassifier interface {
	Classify(ctx context.Context, message string, history []chatdomain.Turn) chatdomain.IntentResult
}

// ConversationStore guarda o histórico por clientId durante a vida do processo.
// History devolve uma cópia; uma conversa nova começa vazia sem "create" explícito.
type ConversationStore interface {
	Append(conversationID string, turn chatdomain.Turn)
	History(conversationID string) []chatdomain.Turn
}

// AssistantGateway produz a resposta do assistente para um histórico.
// Falhas voltam dentro do ReplyResult, nunca como erro.
type AssistantGateway interface {
	Reply(ctx context.Context, history []chatdomain.Turn) chatdomain.ReplyResult
}
