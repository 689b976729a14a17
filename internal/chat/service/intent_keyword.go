package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"
)

// DefaultBuyingPhrases são as frases que indicam intenção de compra.
// "bghit" sozinho fica de fora: aparece em "bghit nchouf" (só olhar).
var DefaultBuyingPhrases = []string{
	"bghit nchri", "nchri", "kifach nchri", "kifach nkhalles",
	"ch7al", "chhal", "taman", "prix", "combien",
	"kayn stock", "stock", "disponible",
	"commande", "commander", "acheter", "paiement", "livraison",
	"buy", "order",
}

// ============================================================
// KeywordClassifier: Strategy A (rápida, determinística)
// ============================================================

// KeywordClassifier marca intenção de compra quando a mensagem contém
// alguma frase da lista. Confiança é sempre 1.0 ou 0.0; o histórico é ignorado.
type KeywordClassifier struct {
	phrases []string
}

// NewKeywordClassifier cria o classificador. Sem frases, usa DefaultBuyingPhrases.
func NewKeywordClassifier(phrases ...string) *KeywordClassifier {
	if len(phrases) == 0 {
		phrases = DefaultBuyingPhrases
	}
	return &KeywordClassifier{phrases: lowerAll(phrases)}
}

// Classify implementa port.IntentClassifier.
func (k *KeywordClassifier) Classify(_ context.Context, message string, _ []domain.Turn) domain.IntentResult {
	lower := strings.ToLower(message)
	for _, phrase := range k.phrases {
		if phrase != "" && strings.Contains(lower, phrase) {
			return domain.IntentResult{
				HasBuyingIntent: true,
				Confidence:      1.0,
				Reasoning:       fmt.Sprintf("matched buying phrase %q", phrase),
			}
		}
	}
	return domain.IntentResult{
		HasBuyingIntent: false,
		Confidence:      0.0,
		Reasoning:       "no buying phrase",
	}
}
