package ringchan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/vitalink/internal/ringchan"
)

func TestRingChannel_SendReceive(t *testing.T) {
	rc := ringchan.New[int](4)
	rc.Send(1)
	rc.Send(2)

	assert.Equal(t, 2, rc.Len())
	assert.Equal(t, 4, rc.Cap())
	assert.Equal(t, 1, <-rc.C())
	assert.Equal(t, 2, <-rc.C())
}

func TestRingChannel_OverwritesOldestWhenFull(t *testing.T) {
	rc := ringchan.New[int](3)
	for i := 1; i <= 5; i++ {
		rc.Send(i)
	}

	require.Equal(t, 3, rc.Len(), "buffer stays bounded")
	assert.Equal(t, 3, <-rc.C())
	assert.Equal(t, 4, <-rc.C())
	assert.Equal(t, 5, <-rc.C())
}

func TestRingChannel_CloseEndsRange(t *testing.T) {
	rc := ringchan.New[string](2)
	rc.Send("a")
	rc.Close()

	var got []string
	for v := range rc.C() {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestRingChannel_InvalidCapacityPanics(t *testing.T) {
	assert.Panics(t, func() { ringchan.New[int](0) })
}
