package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunIDIsValidUUID(t *testing.T) {
	t.Parallel()

	raw := NewRunID()
	parsed, err := uuid.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestNewRunIDsAreOrdered(t *testing.T) {
	t.Parallel()

	a := NewRunID()
	b := NewRunID()
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, a, b)
}
