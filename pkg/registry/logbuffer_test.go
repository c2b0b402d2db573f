package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogBufferAppendAndTail(t *testing.T) {
	b := NewLogBuffer(4)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Tail(10))

	b.Append("one")
	b.Append("two")
	b.Append("three")
	assert.Equal(t, []string{"one", "two", "three"}, b.Tail(0))
	assert.Equal(t, []string{"two", "three"}, b.Tail(2))
}

func TestLogBufferEvictsOldest(t *testing.T) {
	b := NewLogBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Append(fmt.Sprintf("line-%d", i))
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []string{"line-3", "line-4", "line-5"}, b.Tail(0))
	assert.Equal(t, []string{"line-5"}, b.Tail(1))
}

func TestLogBufferConcurrentAppends(t *testing.T) {
	b := NewLogBuffer(64)
	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			for i := 0; i < 100; i++ {
				b.Append(fmt.Sprintf("g%d-%d", g, i))
			}
			done <- struct{}{}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}
	assert.Equal(t, 64, b.Len())
}
