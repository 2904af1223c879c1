package snapshot

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/stretchr/testify/require"
)

func sample() State {
	return State{Algorithm: "xoshiro256+", Lanes: 2, Words: []uint64{1, 2, 3, 4, 5, 6, 7, 0xffffffffffffffff}}
}

// TestSaveLoad restores identical state for plain and gzip files.
func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"states.dump", "states.dump.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, Save(path, sample()))

			_, err := os.Stat(path + ".tmp")
			require.True(t, os.IsNotExist(err), "temporary file is renamed away")

			got, err := Load(path)
			require.NoError(t, err)
			require.Equal(t, sample(), got)
		})
	}
}

// TestLoad_Missing is a resource error.
func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.dump"))
	require.ErrorIs(t, err, errs.ErrResourceNotFound)
}

// TestLoad_CRCMismatch detects a flipped payload bit.
func TestLoad_CRCMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.dump")
	require.NoError(t, Save(path, sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path)
	require.ErrorIs(t, err, ErrCorrupted)
	require.ErrorIs(t, err, errs.ErrConfiguration)
	require.Contains(t, err.Error(), "crc mismatch")
}

// TestLoad_BadMagic rejects foreign files.
func TestLoad_BadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.dump")
	require.NoError(t, os.WriteFile(path, []byte("not a snapshot at all"), 0o644))
	_, err := Load(path)
	require.ErrorIs(t, err, ErrCorrupted)
}

// TestLoad_Truncated rejects a short payload.
func TestLoad_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.dump")
	require.NoError(t, Save(path, sample()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-8], 0o644))

	_, err = Load(path)
	require.ErrorIs(t, err, ErrCorrupted)
}

func header(algo string, lanes, words uint32) []byte {
	buf := []byte("ASHR")
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(algo)))
	buf = append(buf, algo...)
	buf = binary.LittleEndian.AppendUint32(buf, lanes)
	buf = binary.LittleEndian.AppendUint32(buf, words)
	return binary.LittleEndian.AppendUint32(buf, 0)
}

// TestLoad_HeaderBounds rejects word and lane counts before reading the payload.
func TestLoad_HeaderBounds(t *testing.T) {
	cases := map[string][]byte{
		"huge word count": header("xoshiro256+", 8, 0xffffffff),
		"words off lanes": header("xoshiro256+", 8, 31),
		"zero lanes":      header("xoshiro256+", 0, 0),
		"huge lane count": header("xoshiro256+", 0xffffffff, 0xfffffffc),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "states.dump")
			require.NoError(t, os.WriteFile(path, data, 0o644))

			_, err := Load(path)
			require.ErrorIs(t, err, ErrCorrupted)
			require.ErrorIs(t, err, errs.ErrConfiguration)
			require.NotContains(t, err.Error(), "read payload")
		})
	}
}

// TestSave_RejectsMismatchedTable refuses words that do not match the lane count.
func TestSave_RejectsMismatchedTable(t *testing.T) {
	st := sample()
	st.Lanes = 3
	err := Save(filepath.Join(t.TempDir(), "states.dump"), st)
	require.ErrorIs(t, err, errs.ErrConfiguration)
}
