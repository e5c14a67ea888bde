package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// unit values: decimal units are powers of 1000, binary units (the "i"
// forms) are powers of 1024, matching common size-string conventions.
var sizeUnits = map[string]float64{
	"b":   1,
	"kb":  1000,
	"mb":  1000 * 1000,
	"gb":  1000 * 1000 * 1000,
	"tb":  1000 * 1000 * 1000 * 1000,
	"kib": 1024,
	"mib": 1024 * 1024,
	"gib": 1024 * 1024 * 1024,
	"tib": 1024 * 1024 * 1024 * 1024,
}

// ParseSize parses a human-written byte size such as "3kb", "3KiB", or
// "2.5mb" into a byte count. A bare integer with no unit is interpreted as
// bytes. This is a configuration-time helper only: once Config is built,
// every limit the eviction engine consults is already a plain uint64.
func ParseSize(s string) (uint64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	i := 0
	for i < len(trimmed) && (isDigit(trimmed[i]) || trimmed[i] == '.') {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("%w: %q has no leading number", ErrInvalidSize, s)
	}

	numPart := trimmed[:i]
	unitPart := strings.ToLower(strings.TrimSpace(trimmed[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidSize, s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidSize, s)
	}

	if unitPart == "" {
		return uint64(value), nil
	}

	multiplier, ok := sizeUnits[unitPart]
	if !ok {
		return 0, fmt.Errorf("%w: %q has unrecognized unit %q", ErrInvalidSize, s, unitPart)
	}

	return uint64(value * multiplier), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
