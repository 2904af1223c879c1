// Package bytes formats memory sizes and sample counts for logs and tables.
package bytes

import (
	"fmt"
	"strconv"
)

const (
	KB = 1024
	MB = KB * 1024
	GB = MB * 1024
	TB = GB * 1024
)

// FmtMem renders n bytes with its two most significant binary units, e.g. "10MB 512KB".
func FmtMem(n int64) string {
	if n < 0 {
		return "-" + FmtMem(-n)
	}
	switch {
	case n >= TB:
		return fmt.Sprintf("%dTB %dGB", n/TB, n%TB/GB)
	case n >= GB:
		return fmt.Sprintf("%dGB %dMB", n/GB, n%GB/MB)
	case n >= MB:
		return fmt.Sprintf("%dMB %dKB", n/MB, n%MB/KB)
	case n >= KB:
		return fmt.Sprintf("%dKB %dB", n/KB, n%KB)
	default:
		return strconv.FormatInt(n, 10) + "B"
	}
}

// FmtCount renders a sample count with a decimal suffix, e.g. "1.50M".
func FmtCount(n int64) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.2fG", float64(n)/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.2fM", float64(n)/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.2fK", float64(n)/1e3)
	default:
		return strconv.FormatInt(n, 10)
	}
}
