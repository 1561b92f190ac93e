package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBufferBasics(t *testing.T) {
	bb := NewByteBuffer(64)
	require.Equal(t, 0, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), 64)

	bb.MustWrite([]byte{1, 2, 3})
	require.Equal(t, 3, bb.Len())
	require.Equal(t, []byte{1, 2, 3}, bb.Bytes())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
}

func TestByteBufferExtend(t *testing.T) {
	bb := NewByteBuffer(16)
	require.True(t, bb.Extend(8))
	require.Equal(t, 8, bb.Len())

	// Larger than remaining capacity must fail without growing.
	require.False(t, bb.Extend(1024))
	require.Equal(t, 8, bb.Len())

	bb.ExtendOrGrow(1024)
	require.Equal(t, 8+1024, bb.Len())
}

func TestByteBufferGrow(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.MustWrite([]byte{1, 2, 3, 4})
	bb.Grow(1024)
	require.GreaterOrEqual(t, bb.Cap()-bb.Len(), 1024)
	require.Equal(t, []byte{1, 2, 3, 4}, bb.Bytes())
}

func TestPoolGetPut(t *testing.T) {
	bb := GetBuffer()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("scratch"))
	PutBuffer(bb)

	bb2 := GetBuffer()
	require.NotNil(t, bb2)
	require.Equal(t, 0, bb2.Len())
	PutBuffer(bb2)
}

func TestPoolDiscardsOversized(t *testing.T) {
	p := NewByteBufferPool(16, 64)
	bb := p.Get()
	bb.Grow(1024)
	p.Put(bb) // discarded, must not panic

	bb2 := p.Get()
	require.NotNil(t, bb2)
}
