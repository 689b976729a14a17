package infra_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lbatal/storefront-assistant-go/internal/chat/domain"
	"github.com/lbatal/storefront-assistant-go/internal/chat/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStore_UnknownIDIsEmpty(t *testing.T) {
	s := infra.NewConversationStore(0)

	h := s.History("never-seen")
	assert.NotNil(t, h)
	assert.Empty(t, h)
}

func TestConversationStore_AppendKeepsOrder(t *testing.T) {
	s := infra.NewConversationStore(0)

	s.Append("c1", domain.Turn{Role: domain.RoleUser, Content: "salam"})
	s.Append("c1", domain.Turn{Role: domain.RoleAssistant, Content: "ahlan"})
	s.Append("c1", domain.Turn{Role: domain.RoleUser, Content: "ch7al iPhone 12?"})

	h := s.History("c1")
	require.Len(t, h, 3)
	assert.Equal(t, "salam", h[0].Content)
	assert.Equal(t, domain.RoleAssistant, h[1].Role)
	assert.Equal(t, "ch7al iPhone 12?", h[2].Content)
	assert.Equal(t, 1, s.Len())
}

func TestConversationStore_HistoryIsACopy(t *testing.T) {
	s := infra.NewConversationStore(0)
	s.Append("c1", domain.Turn{Role: domain.RoleUser, Content: "original"})

	h := s.History("c1")
	h[0].Content = "mutated"

	assert.Equal(t, "original", s.History("c1")[0].Content)
}

func TestConversationStore_ConcurrentDistinctIDs(t *testing.T) {
	s := infra.NewConversationStore(0)

	const clients = 20
	const turns = 25

	var wg sync.WaitGroup
	for c := 0; c < clients; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			id := fmt.Sprintf("client-%d", c)
			for i := 0; i < turns; i++ {
				s.Append(id, domain.Turn{Role: domain.RoleUser, Content: fmt.Sprintf("%d", i)})
			}
		}(c)
	}
	wg.Wait()

	for c := 0; c < clients; c++ {
		h := s.History(fmt.Sprintf("client-%d", c))
		require.Len(t, h, turns)
		for i, turn := range h {
			assert.Equal(t, fmt.Sprintf("%d", i), turn.Content)
		}
	}
}

func TestConversationStore_TTL(t *testing.T) {
	s := infra.NewConversationStore(50 * time.Millisecond)
	s.Append("c1", domain.Turn{Role: domain.RoleUser, Content: "salam"})

	require.Len(t, s.History("c1"), 1)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, s.History("c1"))
}
