package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/exposer/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBrokerContract runs a suite of tests to verify that a ChangeBroker
// implementation adheres to the defined interface contract.
func RunBrokerContract(t *testing.T, broker ChangeBroker) {
	ctx := context.Background()
	model := "contract-" + time.Now().Format("20060102150405")

	receive := func(t *testing.T, ch <-chan domain.Change) domain.Change {
		t.Helper()
		select {
		case c, ok := <-ch:
			require.True(t, ok, "channel closed before a change arrived")
			return c
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for change")
			return domain.Change{}
		}
	}

	t.Run("Publish and Receive", func(t *testing.T) {
		ch, cancel, err := broker.Subscribe(ctx, model)
		require.NoError(t, err, "Subscribe should not return error")
		defer cancel()

		change := domain.Change{
			Timestamp: time.Now().UTC(),
			Model:     model,
			Path:      "count",
			Value:     5,
		}
		require.NoError(t, broker.Publish(ctx, change), "Publish should not return error")

		got := receive(t, ch)
		assert.Equal(t, model, got.Model)
		assert.Equal(t, "count", got.Path)
		// Transports may widen numbers (e.g. JSON turns int into float64).
		assert.EqualValues(t, 5, got.Value)
	})

	t.Run("Model Isolation", func(t *testing.T) {
		ch, cancel, err := broker.Subscribe(ctx, model+"-a")
		require.NoError(t, err)
		defer cancel()

		require.NoError(t, broker.Publish(ctx, domain.Change{Model: model + "-b", Path: "x", Value: "other"}))
		require.NoError(t, broker.Publish(ctx, domain.Change{Model: model + "-a", Path: "x", Value: "mine"}))

		got := receive(t, ch)
		assert.Equal(t, model+"-a", got.Model)
		assert.Equal(t, "mine", got.Value)
	})

	t.Run("Cancel Closes Channel", func(t *testing.T) {
		ch, cancel, err := broker.Subscribe(ctx, model)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel should be closed after cancel")
		case <-time.After(2 * time.Second):
			t.Fatal("channel not closed after cancel")
		}
	})
}
