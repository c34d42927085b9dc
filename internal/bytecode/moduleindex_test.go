package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeModuleIndex_AbsentEntryPoint(t *testing.T) {
	var buf []byte
	buf = appendU32(buf, uint32(int32(-1)))
	buf = appendU32(buf, uint32(int32(-1)))

	idx, next, err := DecodeModuleIndex(buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(buf), next)
	require.EqualValues(t, -1, idx.EntryClass)
	require.EqualValues(t, -1, idx.EntryMethod)
}

func TestDecodeModuleIndex_NamedEntryPoint(t *testing.T) {
	var buf []byte
	buf = appendU32(buf, 3)
	buf = appendU32(buf, 5)

	idx, _, err := DecodeModuleIndex(buf, 0)
	require.NoError(t, err)
	require.EqualValues(t, 3, idx.EntryClass)
	require.EqualValues(t, 5, idx.EntryMethod)
}

func TestDecodeModuleIndex_Truncated(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x00} // 3 bytes, need 8
	_, _, err := DecodeModuleIndex(buf, 0)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTruncated)
}
