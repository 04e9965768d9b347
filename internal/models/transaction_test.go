package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseKind("deposit")
	require.NoError(t, err)
	assert.Equal(t, Deposit, kind)

	kind, err = ParseKind("withdraw")
	require.NoError(t, err)
	assert.Equal(t, Withdraw, kind)

	for _, bad := range []string{"", "transfer", "DEPOSIT", "withdrawal"} {
		_, err := ParseKind(bad)
		assert.Error(t, err, "kind %q must be rejected", bad)
	}
}

func TestOutcomeValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Success.Valid())
	assert.True(t, Failure.Valid())
	assert.False(t, Outcome("pending").Valid())
	assert.False(t, Outcome("").Valid())
}
