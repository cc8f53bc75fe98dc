package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_Scan(t *testing.T) {
	t.Run("nil yields empty map", func(t *testing.T) {
		var m JSONMap
		require.NoError(t, m.Scan(nil))
		assert.Equal(t, JSONMap{}, m)
	})

	t.Run("bytes", func(t *testing.T) {
		var m JSONMap
		require.NoError(t, m.Scan([]byte(`{"course_id":42,"title":"Go"}`)))
		assert.Equal(t, int64(42), m.GetInt64("course_id"))
		assert.Equal(t, "Go", m.GetString("title"))
	})

	t.Run("unsupported type", func(t *testing.T) {
		var m JSONMap
		assert.ErrorIs(t, m.Scan(10), ErrScanValueNotBytes)
	})
}

func TestJSONMap_Merge(t *testing.T) {
	// Arrange
	base := JSONMap{"a": 1, "b": 2}

	// Act
	got := base.Merge(JSONMap{"b": 3, "c": 4})

	// Assert
	assert.Equal(t, JSONMap{"a": 1, "b": 3, "c": 4}, got)
	assert.Equal(t, 2, base["b"])
}

func TestJSONMap_Value(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}
