package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildModuleBytes(t *testing.T) []byte {
	t.Helper()

	var buf []byte
	buf = append(buf, Signature[:]...)
	buf = append(buf, CurrentVersion)

	// Constant pool: one string ("Counter"), one integer (1).
	buf = appendU32(buf, 2)
	buf = append(buf, byte(ConstString))
	buf = appendU32(buf, uint32(len("Counter")))
	buf = append(buf, []byte("Counter")...)
	buf = append(buf, byte(ConstInteger))
	buf = appendU64(buf, 1)

	// Class table: one non-process class, no methods, no dropper.
	buf = appendU32(buf, 1)
	buf = appendU32(buf, 0) // nameIdx -> "Counter"
	buf = append(buf, 0x00, 0x00)
	buf = append(buf, 0x00) // flags: not a process class
	buf = appendU32(buf, uint32(int32(-1)))
	buf = appendU32(buf, 0) // no methods

	// Method table: empty.
	buf = appendU32(buf, 0)

	// Module index: no entry point.
	buf = appendU32(buf, uint32(int32(-1)))
	buf = appendU32(buf, uint32(int32(-1)))

	return buf
}

func TestDecode_FullModule(t *testing.T) {
	data := buildModuleBytes(t)

	mod, err := Decode(data)
	require.NoError(t, err)
	require.EqualValues(t, CurrentVersion, mod.Version)
	require.Len(t, mod.Constants, 2)
	require.Len(t, mod.Classes, 1)
	require.Empty(t, mod.Methods)
	require.Equal(t, "Counter", mod.Classes[0].Name)
	require.EqualValues(t, -1, mod.EntryClass)
	require.EqualValues(t, -1, mod.EntryMethod)
}

func TestDecode_ModuleIndexNamesEntryPoint(t *testing.T) {
	data := buildModuleBytes(t)
	// Overwrite the trailing module index (last 8 bytes) to name class 0
	// as the entry point's class, method 0 as its method.
	data = data[:len(data)-8]
	data = appendU32(data, 0)
	data = appendU32(data, 0)

	mod, err := Decode(data)
	require.NoError(t, err)
	require.EqualValues(t, 0, mod.EntryClass)
	require.EqualValues(t, 0, mod.EntryMethod)
}

func TestDecode_TruncatedModuleIndex(t *testing.T) {
	data := buildModuleBytes(t)
	data = data[:len(data)-1]

	_, err := Decode(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecode_RejectsUnsupportedVersion(t *testing.T) {
	data := buildModuleBytes(t)
	data[4] = CurrentVersion + 1

	_, err := Decode(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecode_RejectsBadSignature(t *testing.T) {
	data := buildModuleBytes(t)
	data[0] = 'x'

	_, err := Decode(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidSignature)
}
