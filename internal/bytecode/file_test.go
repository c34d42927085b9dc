package bytecode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeHeader_ValidSignatureAndVersion(t *testing.T) {
	data := append([]byte{'i', 'n', 'k', 'o', CurrentVersion}, 0xAA)
	h, n, err := DecodeHeader(data)
	require.NoError(t, err)
	require.Equal(t, uint8(CurrentVersion), h.Version)
	require.Equal(t, 5, n)
}

func TestDecodeHeader_InvalidSignature(t *testing.T) {
	data := []byte{'x', 'x', 'x', 'x', CurrentVersion}
	_, _, err := DecodeHeader(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecodeHeader_UnsupportedVersion(t *testing.T) {
	data := []byte{'i', 'n', 'k', 'o', CurrentVersion + 1}
	_, _, err := DecodeHeader(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeHeader_Truncated(t *testing.T) {
	data := []byte{'i', 'n', 'k'}
	_, _, err := DecodeHeader(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeError_Unwrap(t *testing.T) {
	e := &DecodeError{Offset: 3, Err: ErrTruncated}
	require.True(t, errors.Is(e, ErrTruncated))
	require.Contains(t, e.Error(), "offset 3")
}
