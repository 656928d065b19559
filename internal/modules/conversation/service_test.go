package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	domain "github.com/neurobridge/support-backend/internal/domain/support"
	"github.com/neurobridge/support-backend/internal/modules/query"
)

func TestToHandoverTurns_ReversesToChronologicalOrder(t *testing.T) {
	conf := 0.2
	history := []*domain.Message{
		{SenderType: domain.SenderTypeAI, Content: "third"},
		{SenderType: domain.SenderTypeCustomer, Content: "second"},
		{SenderType: domain.SenderTypeCustomer, Content: "first"},
	}
	history[0].Metadata = mustEncodeMeta(t, domain.MessageMetadata{Confidence: &conf})

	turns := toHandoverTurns(history)
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Content != "first" || turns[2].Content != "third" {
		t.Fatalf("expected chronological order, got %+v", turns)
	}
	if turns[2].Confidence == nil || *turns[2].Confidence != 0.2 {
		t.Fatalf("expected AI turn confidence carried through, got %+v", turns[2])
	}
}

func TestSourceLabels_FormatsDocumentAndChunk(t *testing.T) {
	labels := sourceLabels([]query.Source{
		{DocumentID: "doc-1", ChunkID: "chunk-0"},
		{DocumentID: "doc-1", ChunkID: "chunk-1"},
	})
	if len(labels) != 2 || labels[0] != "doc-1:chunk-0" || labels[1] != "doc-1:chunk-1" {
		t.Fatalf("unexpected labels: %+v", labels)
	}
}

func TestRoomLocks_SerializesSameRoom(t *testing.T) {
	locks := newRoomLocks()
	roomID := uuid.New()

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			release := locks.acquire(roomID)
			defer release()
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(order) != 5 {
		t.Fatalf("expected all 5 goroutines to record, got %d", len(order))
	}
}

func TestRoomLocks_IndependentRoomsDoNotBlock(t *testing.T) {
	locks := newRoomLocks()
	roomA, roomB := uuid.New(), uuid.New()

	releaseA := locks.acquire(roomA)
	done := make(chan struct{})
	go func() {
		releaseB := locks.acquire(roomB)
		defer releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a different room's lock should not block")
	}
	releaseA()
}

func mustEncodeMeta(t *testing.T, meta domain.MessageMetadata) []byte {
	t.Helper()
	m := &domain.Message{}
	if err := m.EncodeMetadata(meta); err != nil {
		t.Fatalf("encode metadata: %v", err)
	}
	return m.Metadata
}
