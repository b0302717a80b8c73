package ingest

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-guildwatch/internal/models"
)

func TestRingBufferFIFO(t *testing.T) {
	rb := NewRingBuffer(8)

	for i := uint64(1); i <= 5; i++ {
		require.True(t, rb.Enqueue(models.Event{GuildID: i}))
	}
	assert.Equal(t, uint32(5), rb.Size())

	for i := uint64(1); i <= 5; i++ {
		ev, ok := rb.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, ev.GuildID)
	}

	_, ok := rb.Dequeue()
	assert.False(t, ok)
	assert.True(t, rb.IsEmpty())
}

func TestRingBufferDropsWhenFull(t *testing.T) {
	rb := NewRingBuffer(4)

	// one slot stays open to distinguish full from empty
	for i := 0; i < 3; i++ {
		require.True(t, rb.Enqueue(models.Event{GuildID: 1}))
	}
	assert.False(t, rb.Enqueue(models.Event{GuildID: 1}))

	_, ok := rb.Dequeue()
	require.True(t, ok)
	assert.True(t, rb.Enqueue(models.Event{GuildID: 1}))
}

func TestRingBufferConcurrentProducers(t *testing.T) {
	rb := NewRingBuffer(1 << 16)

	// gateway handlers and the feed reader enqueue from separate
	// goroutines; every accepted event must survive to the consumer
	const producers = 4
	const perProducer = 5000

	var accepted uint32
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if rb.Enqueue(models.Event{GuildID: uint64(p + 1), ActorID: uint64(i)}) {
					atomic.AddUint32(&accepted, 1)
				}
			}
		}(p)
	}
	wg.Wait()

	drained := 0
	for {
		if _, ok := rb.Dequeue(); !ok {
			break
		}
		drained++
	}

	assert.Equal(t, producers*perProducer, int(accepted))
	assert.Equal(t, int(accepted), drained)
}

func TestRingBufferRoundsToPowerOfTwo(t *testing.T) {
	rb := NewRingBuffer(100)
	assert.Equal(t, uint32(128), rb.Capacity())
}

func TestNormalize(t *testing.T) {
	ev, ok := normalize(feedEvent{Kind: "message", GuildID: 1, ActorID: 2, Content: "hey"})
	require.True(t, ok)
	assert.Equal(t, models.KindMessage, ev.Kind)
	assert.Equal(t, 3, ev.ContentLength)
	assert.NotZero(t, ev.ContentHash)

	_, ok = normalize(feedEvent{Kind: "message", GuildID: 0})
	assert.False(t, ok)

	_, ok = normalize(feedEvent{Kind: "detonate", GuildID: 1})
	assert.False(t, ok)

	ev, ok = normalize(feedEvent{Kind: "voice_transition", GuildID: 1, ActorID: 2, FromChannelID: 10, ToChannelID: 11})
	require.True(t, ok)
	assert.Equal(t, models.KindVoiceTransition, ev.Kind)
	assert.Equal(t, uint64(11), ev.ToChannelID)
}
