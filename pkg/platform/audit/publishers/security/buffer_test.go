package security

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	audit "idauth/pkg/platform/audit"
)

func actions(events []audit.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func TestRingBuffer(t *testing.T) {
	b := NewRingBuffer(3)
	assert.Nil(t, b.DequeueBatch(5))

	for i := range 5 {
		b.Enqueue(audit.Event{Action: fmt.Sprintf("e%d", i)})
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, int64(2), b.Dropped(), "oldest two overwritten")

	assert.Equal(t, []string{"e2", "e3"}, actions(b.DequeueBatch(2)))
	b.Enqueue(audit.Event{Action: "e5"})
	b.Enqueue(audit.Event{Action: "e6"})
	assert.Equal(t, []string{"e4", "e5", "e6"}, actions(b.DequeueBatch(10)))
	assert.Zero(t, b.Len())
}

func TestRingBufferDefaultCapacity(t *testing.T) {
	b := NewRingBuffer(0)
	assert.Len(t, b.slots, defaultCapacity)
}
