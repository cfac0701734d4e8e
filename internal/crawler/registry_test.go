package crawler

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAcquireRelease(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.TryAcquire("https://vnexpress.net"))
	require.False(t, r.TryAcquire("https://vnexpress.net"))
	require.True(t, r.TryAcquire("https://tuoitre.vn"))
	assert.Equal(t, 2, r.ActiveCount())
	assert.ElementsMatch(t, []string{"https://vnexpress.net", "https://tuoitre.vn"}, r.Active())

	r.Release("https://vnexpress.net")
	r.Release("https://vnexpress.net")
	assert.Equal(t, 1, r.ActiveCount())
	require.True(t, r.TryAcquire("https://vnexpress.net"))
}

func TestRegistryFirstWriterWins(t *testing.T) {
	r := NewRegistry()
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryAcquire("https://tuoitre.vn") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
	assert.Equal(t, 1, r.ActiveCount())
}
