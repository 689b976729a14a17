package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"
	"github.com/lbatal/storefront-assistant-go/internal/chat/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Parâmetros da chamada de classificação.
const (
	intentTemperature  = 0.1
	intentMaxTokens    = 200
	intentHistoryTurns = 3
)

// ============================================================
// LLMClassifier: Strategy B (delegada ao modelo)
// ============================================================
//
// Manda a mensagem + os últimos 3 turnos pro modelo com exemplos de
// calibração e espera de volta SÓ um JSON:
//
//	{"hasBuyingIntent": true, "confidence": 0.8, "reasoning": "..."}
//
// Qualquer falha (transporte, status, JSON inválido, confidence fora de [0,1])
// vira o resultado seguro {false, 0.0, "detection failed"}. Nunca propaga erro.

type LLMClassifier struct {
	caller port.CompletionCaller
	model  string
	logger *zap.Logger
}

// NewLLMClassifier cria o classificador delegado.
func NewLLMClassifier(caller port.CompletionCaller, model string, logger *zap.Logger) *LLMClassifier {
	return &LLMClassifier{caller: caller, model: model, logger: logger}
}

// Classify implementa port.IntentClassifier.
func (c *LLMClassifier) Classify(ctx context.Context, message string, history []domain.Turn) domain.IntentResult {
	ctx, span := chatTracer.Start(ctx, "LLMClassifier.Classify")
	defer span.End()

	prompt, err := buildIntentPrompt(message, history)
	if err != nil {
		c.logger.Warn("intent prompt build failed", zap.Error(err))
		return domain.SafeDefaultIntent()
	}

	resp, err := c.caller.Complete(ctx, &domain.CompletionRequest{
		Model:       c.model,
		Messages:    []domain.Turn{{Role: domain.RoleUser, Content: prompt}},
		Temperature: intentTemperature,
		MaxTokens:   intentMaxTokens,
	})
	if err != nil {
		c.logger.Warn("intent detection call failed", zap.Error(err))
		return domain.SafeDefaultIntent()
	}

	result, err := ParseIntentResult(resp.Content)
	if err != nil {
		c.logger.Warn("intent detection returned unusable content",
			zap.Error(err),
			zap.Int("content_length", len(resp.Content)),
		)
		return domain.SafeDefaultIntent()
	}

	span.SetAttributes(
		attribute.Bool("intent.buying", result.HasBuyingIntent),
		attribute.Float64("intent.confidence", result.Confidence),
	)
	return result
}

// ============================================================
// Prompt e parsing
// ============================================================

const intentPromptTemplate = `You are a buying-intent detector for a Moroccan phone and accessories shop.
Customers write in Moroccan Darija (Latin script), French or English.

Recent conversation (JSON, oldest first):
%s

Current customer message:
%q

Decide whether the current message shows intent to BUY (asking price, stock,
how to order, payment or delivery) as opposed to browsing or small talk.

Calibration examples:
- "bghit nchri iPhone"        -> {"hasBuyingIntent": true,  "confidence": 0.95, "reasoning": "explicit wish to buy"}
- "ch7al taman iPhone?"       -> {"hasBuyingIntent": true,  "confidence": 0.8,  "reasoning": "asking the price"}
- "kayn stock?"               -> {"hasBuyingIntent": true,  "confidence": 0.7,  "reasoning": "asking availability"}
- "wach hadi phone mezyan?"   -> {"hasBuyingIntent": false, "confidence": 0.3,  "reasoning": "asking for an opinion"}
- "chokran bzaf"              -> {"hasBuyingIntent": false, "confidence": 0.1,  "reasoning": "thanks, no intent"}

Answer with ONLY a JSON object, no prose:
{"hasBuyingIntent": boolean, "confidence": number between 0 and 1, "reasoning": string}`

func buildIntentPrompt(message string, history []domain.Turn) (string, error) {
	recent := history
	if len(recent) > intentHistoryTurns {
		recent = recent[len(recent)-intentHistoryTurns:]
	}
	if recent == nil {
		recent = []domain.Turn{}
	}
	raw, err := json.Marshal(recent)
	if err != nil {
		return "", fmt.Errorf("marshal recent turns: %w", err)
	}
	return fmt.Sprintf(intentPromptTemplate, raw, message), nil
}

type intentPayload struct {
	HasBuyingIntent *bool    `json:"hasBuyingIntent"`
	Confidence      *float64 `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
}

// ParseIntentResult extrai o IntentResult do texto do modelo. Aceita o JSON
// cru ou dentro de um bloco ```json ... ```.
func ParseIntentResult(content string) (domain.IntentResult, error) {
	raw := strings.TrimSpace(content)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return domain.IntentResult{}, errors.New("no JSON object in content")
	}

	var p intentPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return domain.IntentResult{}, fmt.Errorf("decode intent JSON: %w", err)
	}
	if p.HasBuyingIntent == nil || p.Confidence == nil {
		return domain.IntentResult{}, errors.New("intent JSON missing required fields")
	}
	if *p.Confidence < 0 || *p.Confidence > 1 {
		return domain.IntentResult{}, fmt.Errorf("confidence %v outside [0,1]", *p.Confidence)
	}

	return domain.IntentResult{
		HasBuyingIntent: *p.HasBuyingIntent,
		Confidence:      *p.Confidence,
		Reasoning:       p.Reasoning,
	}, nil
}
