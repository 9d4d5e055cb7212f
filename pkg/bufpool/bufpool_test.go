package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_SizeClasses(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{"one byte", 1, DefaultSmallSize},
		{"small boundary", DefaultSmallSize, DefaultSmallSize},
		{"just above small", DefaultSmallSize + 1, DefaultMediumSize},
		{"medium boundary", DefaultMediumSize, DefaultMediumSize},
		{"large", DefaultMediumSize + 1, DefaultLargeSize},
		{"large boundary", DefaultLargeSize, DefaultLargeSize},
		{"oversized", DefaultLargeSize + 1, DefaultLargeSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Get(tt.size)
			defer Put(buf)

			assert.Len(t, buf, tt.size)
			assert.Equal(t, tt.wantCap, cap(buf))
		})
	}
}

func TestGet_Zero(t *testing.T) {
	buf := Get(0)
	defer Put(buf)

	assert.Empty(t, buf)
	assert.Equal(t, DefaultSmallSize, cap(buf))
}

func TestPut_RestoresFullLength(t *testing.T) {
	p := NewPool(nil)

	buf := p.Get(10)
	buf[0] = 42
	p.Put(buf)

	again := p.Get(DefaultSmallSize)
	require.Len(t, again, DefaultSmallSize)
	p.Put(again)
}

func TestPut_IgnoresForeignBuffers(t *testing.T) {
	p := NewPool(nil)

	assert.NotPanics(t, func() {
		p.Put(nil)
		p.Put(make([]byte, 100))
		p.Put(make([]byte, DefaultLargeSize*2))
	})
}

func TestNewPool_CustomConfig(t *testing.T) {
	p := NewPool(&Config{SmallSize: 512, LargeSize: 8 << 20})

	small := p.Get(100)
	assert.Equal(t, 512, cap(small))
	p.Put(small)

	medium := p.Get(1000)
	assert.Equal(t, DefaultMediumSize, cap(medium))
	p.Put(medium)

	large := p.Get(2 << 20)
	assert.Equal(t, 8<<20, cap(large))
	p.Put(large)
}

func TestPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				size := (i*j)%DefaultLargeSize + 1
				buf := Get(size)
				buf[size-1] = byte(j)
				Put(buf)
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkGet(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Put(Get(DefaultMediumSize))
	}
}
