package uid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflake(t *testing.T) {
	t.Run("GeneratesIncreasingIDs", func(t *testing.T) {
		// Arrange
		gen, err := NewSnowflakeWithNode(7)
		require.NoError(t, err)

		// Act
		first := gen.Generate()
		second := gen.Generate()

		// Assert
		assert.Positive(t, first)
		assert.Greater(t, second, first)
	})

	t.Run("RejectsNodeOutOfRange", func(t *testing.T) {
		_, err := NewSnowflakeWithNode(4096)
		assert.Error(t, err)
	})
}

func TestUUID(t *testing.T) {
	id := NewUUID().Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
