// Package snapshot persists a lane state table to disk and restores it.
//
// File layout, little endian:
//
//	magic "ASHR" | version u16 | algorithm length u16 | algorithm | lanes u32 | words u32 | crc32 u32 | words x u64
//
// The crc32 (IEEE) covers the payload words. Files ending in ".gz" are gzip streams.
package snapshot

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Borislavv/go-ash-rand/errs"
	"github.com/rs/zerolog/log"
)

const (
	version    = 1
	bufferSize = 512 * 1024

	// WordsPerLane is the number of 64-bit words each lane state occupies.
	WordsPerLane = 4
	// MaxLanes bounds the lane count a snapshot header may declare.
	MaxLanes = 1 << 24
)

var magic = [4]byte{'A', 'S', 'H', 'R'}

// ErrCorrupted marks a snapshot that cannot be trusted.
var ErrCorrupted = errors.New("snapshot corrupted")

// State is one persisted state table.
type State struct {
	Algorithm string
	Lanes     int
	Words     []uint64
}

// Save writes st to path through a temporary file and an atomic rename.
func Save(path string, st State) error {
	start := time.Now()
	if len(st.Algorithm) > 0xffff {
		return fmt.Errorf("%w: algorithm name too long", errs.ErrConfiguration)
	}
	if st.Lanes <= 0 || st.Lanes > MaxLanes || len(st.Words) != st.Lanes*WordsPerLane {
		return fmt.Errorf("%w: state table of %d words does not hold %d lanes",
			errs.ErrConfiguration, len(st.Words), st.Lanes)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot file %s: %w", tmp, err)
	}

	if err = write(f, path, st); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close snapshot file %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot %s: %w", tmp, err)
	}

	log.Info().
		Str("file", path).
		Str("algorithm", st.Algorithm).
		Int("lanes", st.Lanes).
		Str("elapsed", time.Since(start).String()).
		Msg("state table saved")
	return nil
}

func write(f io.Writer, path string, st State) error {
	var (
		writer io.Writer = f
		gw     *gzip.Writer
	)
	if strings.HasSuffix(path, ".gz") {
		gw = gzip.NewWriter(f)
		writer = gw
	}
	bw := bufio.NewWriterSize(writer, bufferSize)

	payload := encodeWords(st.Words)
	header := make([]byte, 0, 4+2+2+len(st.Algorithm)+12)
	header = append(header, magic[:]...)
	header = binary.LittleEndian.AppendUint16(header, version)
	header = binary.LittleEndian.AppendUint16(header, uint16(len(st.Algorithm)))
	header = append(header, st.Algorithm...)
	header = binary.LittleEndian.AppendUint32(header, uint32(st.Lanes))
	header = binary.LittleEndian.AppendUint32(header, uint32(len(st.Words)))
	header = binary.LittleEndian.AppendUint32(header, crc32.ChecksumIEEE(payload))

	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := bw.Write(payload); err != nil {
		return fmt.Errorf("write snapshot payload: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if gw != nil {
		if err := gw.Close(); err != nil {
			return fmt.Errorf("close snapshot gzip stream: %w", err)
		}
	}
	return nil
}

// Load reads and verifies the snapshot at path.
func Load(path string) (State, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, fmt.Errorf("%w: snapshot %s", errs.ErrResourceNotFound, path)
		}
		return State{}, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return State{}, corrupted(path, "gzip header: %v", err)
		}
		defer gzr.Close()
		reader = gzr
	}
	br := bufio.NewReaderSize(reader, bufferSize)

	var fixed [8]byte
	if _, err = io.ReadFull(br, fixed[:]); err != nil {
		return State{}, corrupted(path, "read header: %v", err)
	}
	if [4]byte(fixed[:4]) != magic {
		return State{}, corrupted(path, "bad magic %q", fixed[:4])
	}
	if v := binary.LittleEndian.Uint16(fixed[4:6]); v != version {
		return State{}, corrupted(path, "unsupported version %d", v)
	}
	algo := make([]byte, binary.LittleEndian.Uint16(fixed[6:8]))
	if _, err = io.ReadFull(br, algo); err != nil {
		return State{}, corrupted(path, "read algorithm: %v", err)
	}

	var meta [12]byte
	if _, err = io.ReadFull(br, meta[:]); err != nil {
		return State{}, corrupted(path, "read meta: %v", err)
	}
	lanes := binary.LittleEndian.Uint32(meta[0:4])
	words := binary.LittleEndian.Uint32(meta[4:8])
	expCRC := binary.LittleEndian.Uint32(meta[8:12])
	if lanes == 0 || lanes > MaxLanes {
		return State{}, corrupted(path, "lane count %d out of range", lanes)
	}
	if uint64(words) != uint64(lanes)*WordsPerLane {
		return State{}, corrupted(path, "%d words do not hold %d lanes", words, lanes)
	}

	payload := make([]byte, int(words)*8)
	if _, err = io.ReadFull(br, payload); err != nil {
		return State{}, corrupted(path, "read payload: %v", err)
	}
	if crc32.ChecksumIEEE(payload) != expCRC {
		return State{}, corrupted(path, "crc mismatch")
	}

	st := State{Algorithm: string(algo), Lanes: int(lanes), Words: decodeWords(payload)}

	log.Info().
		Str("file", path).
		Str("algorithm", st.Algorithm).
		Int("lanes", st.Lanes).
		Str("elapsed", time.Since(start).String()).
		Msg("state table restored")
	return st, nil
}

func corrupted(path, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s: %s", errs.ErrConfiguration, ErrCorrupted, path, fmt.Sprintf(format, args...))
}

func encodeWords(words []uint64) []byte {
	buf := make([]byte, 0, len(words)*8)
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint64(buf, w)
	}
	return buf
}

func decodeWords(buf []byte) []uint64 {
	words := make([]uint64, len(buf)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return words
}
