package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneArg_HandsOutSameValueForever(t *testing.T) {
	t.Parallel()

	factory := CloneArg("proto")
	for i := 0; i < 3; i++ {
		val, ok := factory()
		require.True(t, ok)
		assert.Equal(t, "proto", val)
	}
}

func TestUniqueArg_ExhaustsAfterOneUse(t *testing.T) {
	t.Parallel()

	factory := UniqueArg(42)

	val, ok := factory()
	require.True(t, ok)
	assert.Equal(t, 42, val)

	_, ok = factory()
	assert.False(t, ok, "a second call must report exhaustion")
}

func TestCall0Arg_CallsFreshEveryTime(t *testing.T) {
	t.Parallel()

	n := 0
	factory := Call0Arg(func() int {
		n++
		return n
	})

	v1, ok := factory()
	require.True(t, ok)
	v2, ok := factory()
	require.True(t, ok)

	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}

func TestDefaultShutdownSequence(t *testing.T) {
	t.Parallel()

	seq := DefaultShutdownSequence()
	require.Len(t, seq, 2)
	assert.Equal(t, "shutdown", seq[0].Reason.Kind().String())
	assert.Equal(t, "kill", seq[1].Reason.Kind().String())
}
