package pairing

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneshot_FirstResolverWins(t *testing.T) {
	o := newOneshot()

	assert.True(t, o.Resolve(nil))
	assert.False(t, o.Resolve(errors.New("too late")))

	err := <-o.Done()
	assert.NoError(t, err)
}

func TestOneshot_ConcurrentResolvers(t *testing.T) {
	o := newOneshot()

	var wg sync.WaitGroup
	var fulfilled int32
	results := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- o.Resolve(errors.New("race"))
		}()
	}
	wg.Wait()
	close(results)

	for ok := range results {
		if ok {
			fulfilled++
		}
	}
	assert.EqualValues(t, 1, fulfilled, "exactly one resolver must win")

	require.Error(t, <-o.Done())
}
