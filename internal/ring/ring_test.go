package ring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushEvictsOldestWhenFull(t *testing.T) {
	b := New[int](2)
	require.False(t, b.Push(1))
	require.False(t, b.Push(2))
	require.True(t, b.Push(3)) // evicts 1

	v, ok := b.TryPop()
	require.True(t, ok)
	require.Equal(t, 2, v)

	v, ok = b.TryPop()
	require.True(t, ok)
	require.Equal(t, 3, v)

	_, ok = b.TryPop()
	require.False(t, ok)
}

func TestPopBlocksUntilPush(t *testing.T) {
	b := New[string](4)
	done := make(chan string, 1)
	go func() {
		v, ok := b.Pop()
		if ok {
			done <- v
		} else {
			done <- "closed"
		}
	}()

	time.Sleep(20 * time.Millisecond)
	b.Push("hello")

	select {
	case v := <-done:
		require.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Pop")
	}
}

func TestCloseUnblocksPop(t *testing.T) {
	b := New[int](1)
	done := make(chan bool, 1)
	go func() {
		_, ok := b.Pop()
		done <- ok
	}()
	time.Sleep(20 * time.Millisecond)
	b.Close()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Close to unblock Pop")
	}
}

func TestOrderPreservedInOrder(t *testing.T) {
	b := New[int](8)
	for i := 0; i < 5; i++ {
		b.Push(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := b.TryPop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}
