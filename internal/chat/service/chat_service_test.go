package service_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"
	"github.com/lbatal/storefront-assistant-go/internal/chat/infra"
	"github.com/lbatal/storefront-assistant-go/internal/chat/service"
	"github.com/lbatal/storefront-assistant-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================================
// Fakes
// ============================================================

type fakeClassifier struct {
	result domain.IntentResult
	calls  int32
	panics bool
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, _ []domain.Turn) domain.IntentResult {
	atomic.AddInt32(&f.calls, 1)
	if f.panics {
		panic("boom")
	}
	return f.result
}

type fakeGateway struct {
	result domain.ReplyResult
	calls  int32
	got    []domain.Turn
}

func (f *fakeGateway) Reply(_ context.Context, history []domain.Turn) domain.ReplyResult {
	atomic.AddInt32(&f.calls, 1)
	f.got = history
	return f.result
}

type fixture struct {
	svc        *service.ChatService
	store      *infra.ConversationStore
	classifier *fakeClassifier
	gateway    *fakeGateway
	metrics    *observability.Metrics
}

func newFixture(t *testing.T, intent domain.IntentResult, reply domain.ReplyResult) *fixture {
	t.Helper()
	cat := mustCatalog(t)
	f := &fixture{
		store:      infra.NewConversationStore(0),
		classifier: &fakeClassifier{result: intent},
		gateway:    &fakeGateway{result: reply},
		metrics:    observability.NewMetrics(),
	}
	f.svc = service.NewChatService(
		f.store,
		f.classifier,
		f.gateway,
		service.NewResolver(service.DefaultRules(cat)...),
		cat.Store(),
		0.6,
		f.metrics,
		zap.NewNop(),
	)
	return f
}

// seed grava uma troca anterior para pular as boas-vindas.
func (f *fixture) seed(clientID string) {
	f.store.Append(clientID, domain.Turn{Role: domain.RoleUser, Content: "salam"})
	f.store.Append(clientID, domain.Turn{Role: domain.RoleAssistant, Content: "mar7ba"})
}

// ============================================================
// Testes
// ============================================================

func TestProcessMessage_FirstMessageIsWelcome(t *testing.T) {
	f := newFixture(t, domain.IntentResult{HasBuyingIntent: true, Confidence: 1}, domain.ReplyResult{Text: "model"})

	resp, err := f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "bghit nchri iPhone 12", ClientID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, service.WelcomeText(mustCatalog(t).Store()), resp.Reply)
	assert.False(t, resp.ShowForm)
	assert.Nil(t, resp.Products)
	assert.Nil(t, resp.IntentAnalysis)

	assert.Zero(t, atomic.LoadInt32(&f.classifier.calls))
	assert.Zero(t, atomic.LoadInt32(&f.gateway.calls))

	h := f.store.History("c1")
	require.Len(t, h, 2)
	assert.Equal(t, domain.RoleUser, h[0].Role)
	assert.Equal(t, domain.RoleAssistant, h[1].Role)
	assert.Equal(t, resp.Reply, h[1].Content)
}

func TestProcessMessage_ModelReplyWithProductsAndForm(t *testing.T) {
	intent := domain.IntentResult{HasBuyingIntent: true, Confidence: 0.8, Reasoning: "asking the price"}
	f := newFixture(t, intent, domain.ReplyResult{Text: "iPhone 12 b 4200 MAD", PromptTokens: 10, CompletionTokens: 5})
	f.seed("c1")

	resp, err := f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "ch7al taman iPhone 12?", ClientID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, "iPhone 12 b 4200 MAD", resp.Reply)
	assert.True(t, resp.ShowForm)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "iPhone 12", resp.Products[0].Name)
	require.NotNil(t, resp.IntentAnalysis)
	assert.Equal(t, intent, *resp.IntentAnalysis)

	// O gateway recebe o histórico completo, incluindo a mensagem atual.
	require.Len(t, f.gateway.got, 3)
	assert.Equal(t, "ch7al taman iPhone 12?", f.gateway.got[2].Content)

	h := f.store.History("c1")
	require.Len(t, h, 4)
	assert.Equal(t, "iPhone 12 b 4200 MAD", h[3].Content)
}

func TestProcessMessage_NoProductsIsNull(t *testing.T) {
	f := newFixture(t, domain.IntentResult{Confidence: 0.1}, domain.ReplyResult{Text: "l3afw"})
	f.seed("c1")

	resp, err := f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "chokran bzaf", ClientID: "c1"})
	require.NoError(t, err)

	assert.Nil(t, resp.Products)
	assert.False(t, resp.ShowForm)
}

func TestProcessMessage_ThresholdIsStrict(t *testing.T) {
	f := newFixture(t, domain.IntentResult{HasBuyingIntent: true, Confidence: 0.6}, domain.ReplyResult{Text: "ok"})
	f.seed("c1")

	resp, err := f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "kayn stock?", ClientID: "c1"})
	require.NoError(t, err)
	assert.False(t, resp.ShowForm)
}

func TestProcessMessage_GatewayFailureUsesFallback(t *testing.T) {
	failures := []domain.FailureReason{
		domain.FailureRateLimited,
		domain.FailureMissingCredential,
		domain.FailureCircuitOpen,
		domain.FailureEmptyReply,
	}

	for _, failure := range failures {
		t.Run(string(failure), func(t *testing.T) {
			f := newFixture(t,
				domain.IntentResult{HasBuyingIntent: true, Confidence: 0.9},
				domain.ReplyResult{Failure: failure, Err: fmt.Errorf("%s", failure)},
			)
			f.seed("c1")

			resp, err := f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "ch7al iPhone 12", ClientID: "c1"})
			require.NoError(t, err)

			store := mustCatalog(t).Store()
			assert.Equal(t, f.svc.FallbackReply(), resp.Reply)
			assert.Contains(t, resp.Reply, store.Phone)
			assert.Contains(t, resp.Reply, store.Email)

			// A intenção e os produtos continuam valendo.
			assert.True(t, resp.ShowForm)
			assert.Len(t, resp.Products, 1)

			h := f.store.History("c1")
			assert.Equal(t, resp.Reply, h[len(h)-1].Content)

			snap := f.metrics.GetAssistantSnapshot()
			assert.Equal(t, int64(1), snap.TotalChats)
			assert.InDelta(t, 1.0, snap.FallbackRate, 1e-9)
		})
	}
}

func TestProcessMessage_SafeDefaultIntentHidesForm(t *testing.T) {
	f := newFixture(t, domain.SafeDefaultIntent(), domain.ReplyResult{Text: "ok"})
	f.seed("c1")

	resp, err := f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "bghit nchri", ClientID: "c1"})
	require.NoError(t, err)

	assert.False(t, resp.ShowForm)
	assert.Equal(t, domain.DetectionFailedReasoning, resp.IntentAnalysis.Reasoning)
	assert.InDelta(t, 1.0, f.metrics.GetAssistantSnapshot().IntentFailureRate, 1e-9)
}

func TestProcessMessage_PanicBecomesError(t *testing.T) {
	f := newFixture(t, domain.IntentResult{}, domain.ReplyResult{Text: "ok"})
	f.classifier.panics = true
	f.seed("c1")

	resp, err := f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "salam", ClientID: "c1"})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestProcessMessage_ConversationsAreIsolated(t *testing.T) {
	f := newFixture(t, domain.IntentResult{}, domain.ReplyResult{Text: "ok"})

	_, err := f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "salam", ClientID: "a"})
	require.NoError(t, err)
	_, err = f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "salam", ClientID: "b"})
	require.NoError(t, err)

	// Ambos receberam boas-vindas: nenhum chamou o gateway.
	assert.Zero(t, atomic.LoadInt32(&f.gateway.calls))

	_, err = f.svc.ProcessMessage(context.Background(), &domain.ChatRequest{Message: "ch7al?", ClientID: "a"})
	require.NoError(t, err)

	assert.Len(t, f.store.History("a"), 4)
	assert.Len(t, f.store.History("b"), 2)
}
