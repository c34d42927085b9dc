package process

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxFIFOOrder(t *testing.T) {
	var mb Mailbox
	for i := 0; i < 5; i++ {
		mb.Push(Message{Args: nil})
	}
	assert.Equal(t, 5, mb.Len())

	for i := 0; i < 5; i++ {
		_, ok := mb.Pop()
		require.True(t, ok)
	}
	_, ok := mb.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, mb.Len())
}

func TestMailboxSpansMultipleChunks(t *testing.T) {
	var mb Mailbox
	n := mailboxChunkSize*2 + 3
	for i := 0; i < n; i++ {
		mb.Push(Message{})
	}
	assert.Equal(t, n, mb.Len())
	count := 0
	for {
		if _, ok := mb.Pop(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, n, count)
}

func TestMailboxConcurrentPush(t *testing.T) {
	var mb Mailbox
	var wg sync.WaitGroup
	const senders = 8
	const perSender = 50
	wg.Add(senders)
	for i := 0; i < senders; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				mb.Push(Message{})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, senders*perSender, mb.Len())
}

func TestMailboxReuseAfterDrain(t *testing.T) {
	var mb Mailbox
	mb.Push(Message{})
	_, ok := mb.Pop()
	require.True(t, ok)
	_, ok = mb.Pop()
	require.False(t, ok)

	// Pushing again after a full drain must still work (cursor reset).
	mb.Push(Message{})
	_, ok = mb.Pop()
	require.True(t, ok)
}
