package infra

import (
	"time"

	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"

	"github.com/patrickmn/go-cache"
)

// ============================================================
// ConversationStore: histórico em memória por clientId
// ============================================================
//
// Não há persistência: o histórico vive enquanto o processo vive.
// Por padrão nada expira (sem janitor, sem timers). Com CONVERSATION_TTL > 0
// o operador liga expiração deliberadamente e o go-cache limpa as entradas
// vencidas no mesmo intervalo.
//
// Append é read-modify-append: dois requests simultâneos para o MESMO
// clientId podem se intercalar ou perder um turno. clientIds diferentes
// nunca interferem (o go-cache serializa o acesso ao mapa).

type ConversationStore struct {
	items *cache.Cache
}

// NewConversationStore cria o store. ttl <= 0 mantém as conversas para sempre.
func NewConversationStore(ttl time.Duration) *ConversationStore {
	if ttl <= 0 {
		return &ConversationStore{items: cache.New(cache.NoExpiration, 0)}
	}
	return &ConversationStore{items: cache.New(ttl, ttl)}
}

// Append grava um turno no fim do histórico, criando a conversa se for nova.
func (s *ConversationStore) Append(conversationID string, turn domain.Turn) {
	history := s.load(conversationID)
	history = append(history, turn)
	s.items.Set(conversationID, history, cache.DefaultExpiration)
}

// History devolve uma cópia do histórico, em ordem de chegada.
// Conversa desconhecida → slice vazio (nunca nil).
func (s *ConversationStore) History(conversationID string) []domain.Turn {
	history := s.load(conversationID)
	out := make([]domain.Turn, len(history))
	copy(out, history)
	return out
}

// Len é o número de conversas conhecidas (usado no /healthz).
func (s *ConversationStore) Len() int {
	return s.items.ItemCount()
}

func (s *ConversationStore) load(conversationID string) []domain.Turn {
	v, ok := s.items.Get(conversationID)
	if !ok {
		return nil
	}
	history, _ := v.([]domain.Turn)
	return history
}
