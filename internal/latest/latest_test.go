package latest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotPredicates(t *testing.T) {
	var pending Snapshot[int]
	assert.True(t, pending.Pending())
	assert.False(t, pending.Failed())
	assert.False(t, pending.Ready())

	failed := Errored[int](errors.New("boom"))
	assert.False(t, failed.Pending())
	assert.True(t, failed.Failed())
	assert.False(t, failed.Ready())

	ready := Of(42)
	assert.True(t, ready.Ready())
	assert.Equal(t, 42, *ready.Data)

	// data wins over a later error
	stale := Snapshot[int]{Data: ready.Data, Err: errors.New("revalidate failed")}
	assert.True(t, stale.Ready())
	assert.False(t, stale.Failed())
}

func TestPairArrival(t *testing.T) {
	tests := []struct {
		name string
		pair Pair[string, int]
		want Arrival
	}{
		{"both pending", Combine(Snapshot[string]{}, Snapshot[int]{}), BothPending},
		{"first only", Combine(Of("a"), Snapshot[int]{}), FirstOnly},
		{"second only", Combine(Snapshot[string]{}, Of(1)), SecondOnly},
		{"both ready", Combine(Of("a"), Of(1)), BothReady},
		{"first failed", Combine(Errored[string](errors.New("x")), Of(1)), SecondOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pair.Arrival())
		})
	}
}

func TestArrivalString(t *testing.T) {
	assert.Equal(t, "both_ready", BothReady.String())
	assert.Equal(t, "unknown", Arrival(99).String())
}
