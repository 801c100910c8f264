package strnum

import (
	"strconv"

	"github.com/go-errors/errors"
)

// The Aptos REST API serializes u64 values as JSON strings to avoid
// precision loss in javascript clients.

func IntFromDecimal(number string) (int64, error) {
	// Empty string is OK
	if len(number) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return 0, errors.Errorf("failed to parse '%s' as int: %w", number, err)
	}
	return n, nil
}
