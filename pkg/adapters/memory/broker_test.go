package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/exposer/pkg/adapters/memory"
	"github.com/aretw0/exposer/pkg/domain"
	"github.com/aretw0/exposer/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_Contract(t *testing.T) {
	ports.RunBrokerContract(t, memory.NewBroker())
}

func TestBroker_DropsWhenFull(t *testing.T) {
	b := memory.NewBroker(memory.WithBufferSize(1))
	ch, cancel, err := b.Subscribe(context.Background(), "device")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, b.Publish(context.Background(), domain.Change{Model: "device", Path: "a", Value: 1}))
	require.NoError(t, b.Publish(context.Background(), domain.Change{Model: "device", Path: "a", Value: 2}))

	got := <-ch
	assert.Equal(t, 1, got.Value)
	select {
	case extra := <-ch:
		t.Fatalf("expected the second change to be dropped, got %v", extra)
	default:
	}
}

func TestBroker_ContextEndsSubscription(t *testing.T) {
	b := memory.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())

	_, release, err := b.Subscribe(ctx, "device")
	require.NoError(t, err)
	defer release()
	assert.Equal(t, 1, b.Subscribers("device"))

	cancel()
	assert.Eventually(t, func() bool {
		return b.Subscribers("device") == 0
	}, time.Second, 10*time.Millisecond)
}
