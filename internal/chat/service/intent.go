package service

import (
	"strings"

	"github.com/lbatal/storefront-assistant-go/internal/chat/port"
	"github.com/lbatal/storefront-assistant-go/internal/config"

	"go.uber.org/zap"
)

// SelectClassifier escolhe a estratégia de detecção de intenção.
//
//   - "keyword"          → KeywordClassifier
//   - "ai" (ou qualquer outro valor) com chave → LLMClassifier
//   - "ai" sem chave     → KeywordClassifier + warning: o modelo falharia
//     sempre e o formulário nunca apareceria
func SelectClassifier(kind string, hasCredential bool, caller port.CompletionCaller, model string, logger *zap.Logger) port.IntentClassifier {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case config.ClassifierKeyword:
		logger.Info("intent classifier selected", zap.String("classifier", config.ClassifierKeyword))
		return NewKeywordClassifier()
	case config.ClassifierAI:
	default:
		logger.Warn("unknown intent classifier, using ai", zap.String("value", kind))
	}

	if !hasCredential {
		logger.Warn("intent classifier 'ai' needs OPENROUTER_API_KEY, falling back to keyword classifier")
		return NewKeywordClassifier()
	}

	logger.Info("intent classifier selected",
		zap.String("classifier", config.ClassifierAI),
		zap.String("model", model),
	)
	return NewLLMClassifier(caller, model, logger)
}
