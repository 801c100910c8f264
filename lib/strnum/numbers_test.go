package strnum_test

import (
	"testing"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/lib/strnum"
	"github.com/stretchr/testify/require"
)

func TestIntFromDecimal(t *testing.T) {
	n, err := strnum.IntFromDecimal("12345")
	require.NoError(t, err)
	require.EqualValues(t, 12345, n)

	n, err = strnum.IntFromDecimal("")
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = strnum.IntFromDecimal("0x10")
	require.Error(t, err)

	_, err = strnum.IntFromDecimal("not-a-number")
	require.Error(t, err)
}
