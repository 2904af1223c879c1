package pipeline

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/zeebo/xxh3"
)

// Key identifies a pipeline by its full name. v is the map key, hi/lo guard
// against 64-bit collisions.
type Key struct {
	v  uint64
	hi uint64
	lo uint64
}

// FullName joins a kernel name and its compile-time values: name_v1_v2.
func FullName(name string, values []string) string {
	if len(values) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	for _, v := range values {
		b.WriteByte('_')
		b.WriteString(v)
	}
	return b.String()
}

func NewKey(fullName string) Key {
	return buildKey(unsafe.Slice(unsafe.StringData(fullName), len(fullName)))
}

func (k Key) Value() uint64 { return k.v }

func (k Key) IsTheSame(other Key) bool {
	return k.v == other.v && k.hi == other.hi && k.lo == other.lo
}

var hasherPool = sync.Pool{New: func() any { return xxh3.New() }}

func buildKey(data []byte) Key {
	hasher := hasherPool.Get().(*xxh3.Hasher)
	hasher.Reset()
	_, _ = hasher.Write(data)

	u128 := hasher.Sum128()
	k := Key{v: hasher.Sum64(), hi: u128.Hi, lo: u128.Lo}

	hasherPool.Put(hasher)
	return k
}
