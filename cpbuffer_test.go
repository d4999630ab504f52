package fiberwork

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCPBuffer_ProduceConsumeSingleSide(t *testing.T) {
	b := newCPBuffer(0)
	for i := 0; i < 5; i++ {
		msg := newSpawnRequestMessage(func(any) {}, i)
		assert.NoError(t, b.produce(msg))
	}

	var got []int
	consumed := b.consume(func(m *internalMessage) {
		got = append(got, m.request.argument.(int))
	})
	assert.True(t, consumed)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestCPBuffer_ConsumeEmptyReturnsFalse(t *testing.T) {
	b := newCPBuffer(0)
	consumed := b.consume(func(*internalMessage) {})
	assert.False(t, consumed)
}

func TestCPBuffer_ConcurrentProducersSingleConsumer(t *testing.T) {
	b := newCPBuffer(0)
	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				m := newSpawnRequestMessage(func(any) {}, p*perProducer+i)
				assert.NoError(t, b.produce(m))
			}
		}(p)
	}

	total := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for total < producers*perProducer {
			b.consume(func(*internalMessage) {
				total++
			})
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, producers*perProducer, total)
}
