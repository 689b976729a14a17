// Package handler (chat_handler.go) implementa o handler das rotas
// POST /api/ai_chat e POST /v1/chat, a entrada do chat da loja.
//
// As duas rotas são a mesma coisa: /api/ai_chat é o caminho que a página
// já usa, /v1/chat segue o padrão versionado do resto da API.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// tracer é o tracer OpenTelemetry para o módulo chat/handler.
var tracer = otel.Tracer("chat/handler")

// ChatProcessor é o que o handler precisa do ChatService.
type ChatProcessor interface {
	ProcessMessage(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error)
	FallbackReply() string
}

// ============================================================
// ChatHandler: POST /api/ai_chat
// ============================================================

// ChatHandler retorna o http.HandlerFunc da rota de chat.
//
// Request:
//
//	Content-Type: application/json
//	Body: {"message": "ch7al taman iPhone 12?", "clientId": "c-123"}
//
// Response (200 OK):
//
//	{"reply": "...", "showForm": true, "products": [...], "intentAnalysis": {...}}
//
// Erros:
//   - 400 {"error": "..."}: body inválido ou clientId vazio. Mensagem vazia
//     não é erro: a primeira mensagem de uma conversa sempre recebe as boas-vindas.
//   - 500 {"reply": <fallback>, "showForm": false, "products": null}: qualquer
//     falha inesperada, inclusive panic
func ChatHandler(chatSvc ChatProcessor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/ai_chat")
		defer span.End()

		// Panic em qualquer ponto abaixo vira o 500 com fallback,
		// nunca um body vazio.
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				logger.Error("chat handler panicked", zap.Any("panic", rec))
				writeFallback(w, chatSvc)
			}
		}()

		req, status, msg := decodeChatRequest(r)
		if status != 0 {
			writeError(w, status, msg)
			return
		}
		span.SetAttributes(attribute.String("client.id", req.ClientID))

		resp, err := chatSvc.ProcessMessage(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("chat processing failed",
				zap.String("client_id", req.ClientID),
				zap.Error(err),
			)
			writeFallback(w, chatSvc)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// decodeChatRequest lê o body em duas etapas: clientId é checado antes do
// message ser decodificado, então um message com tipo errado não esconde
// a falta do clientId. status 0 significa request válido.
func decodeChatRequest(r *http.Request) (*domain.ChatRequest, int, string) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, http.StatusBadRequest, "invalid request body"
	}

	req := &domain.ChatRequest{}
	if v, ok := raw["clientId"]; ok {
		if err := json.Unmarshal(v, &req.ClientID); err != nil {
			return nil, http.StatusBadRequest, "clientId is required"
		}
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, http.StatusBadRequest, "clientId is required"
	}

	if v, ok := raw["message"]; ok {
		if err := json.Unmarshal(v, &req.Message); err != nil {
			return nil, http.StatusBadRequest, "invalid request body"
		}
	}
	return req, 0, ""
}

// ============================================================
// Helpers: funções utilitárias do chat handler
// ============================================================

// writeFallback escreve o 500 com o texto de fallback da loja.
func writeFallback(w http.ResponseWriter, chatSvc ChatProcessor) {
	writeJSON(w, http.StatusInternalServerError, domain.ChatResponse{
		Reply:    chatSvc.FallbackReply(),
		ShowForm: false,
		Products: nil,
	})
}

// writeJSON serializa data como JSON e escreve na response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError escreve uma resposta de erro padronizada.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
