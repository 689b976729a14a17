package service_test

import (
	"testing"

	"github.com/lbatal/storefront-assistant-go/internal/chat/service"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSelectClassifier(t *testing.T) {
	caller := &fakeCaller{}

	tests := []struct {
		name    string
		kind    string
		hasKey  bool
		wantLLM bool
	}{
		{"ai with key", "ai", true, true},
		{"ai uppercase", "AI", true, true},
		{"ai without key falls back", "ai", false, false},
		{"keyword", "keyword", true, false},
		{"unknown defaults to ai", "magic", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := service.SelectClassifier(tt.kind, tt.hasKey, caller, "m", zap.NewNop())
			if tt.wantLLM {
				assert.IsType(t, &service.LLMClassifier{}, c)
			} else {
				assert.IsType(t, &service.KeywordClassifier{}, c)
			}
		})
	}
}
