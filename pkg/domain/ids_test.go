package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bloodlink/pkg/domain-errors"
)

func TestParseAccountID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseAccountID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects the nil UUID", func(t *testing.T) {
		_, err := ParseAccountID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts a valid UUID and round-trips", func(t *testing.T) {
		id := NewAccountID()
		parsed, err := ParseAccountID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("is case-insensitive on input", func(t *testing.T) {
		id := NewAccountID()
		parsed, err := ParseAccountID(strings.ToUpper(id.String()))
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}

func TestTypedIDs_DoNotCrossAssign(t *testing.T) {
	// Each Parse helper returns its own type; a lot ID string parses fine as
	// any UUID but the type system keeps the entities apart.
	lotID := NewLotID()

	parsedRequest, err := ParseRequestID(lotID.String())
	require.NoError(t, err)
	assert.Equal(t, lotID.String(), parsedRequest.String())
}

func TestIsNil(t *testing.T) {
	var zero AccountID
	assert.True(t, zero.IsNil())
	assert.False(t, NewAccountID().IsNil())
}
