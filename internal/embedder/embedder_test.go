package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ComputeHash(""))
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", ComputeHash("hello world"))
	assert.Equal(t, ComputeHash("test"), ComputeHash("test"))
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "test text"}))
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{Text: ""}), ErrEmptyText)
}

func TestValidateBatchRequest(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		wantErr bool
	}{
		{name: "valid batch", texts: []string{"text1", "text2", "text3"}},
		{name: "empty batch", texts: []string{}, wantErr: true},
		{name: "contains empty text", texts: []string{"text1", "", "text3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(BatchEmbeddingRequest{Texts: tt.texts})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCache(t *testing.T) {
	t.Run("get returns a copy", func(t *testing.T) {
		cache := NewCache(10)
		cache.Set("m", "h", &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3})

		got, ok := cache.Get("m", "h")
		require.True(t, ok)
		got.Vector[0] = 99

		again, ok := cache.Get("m", "h")
		require.True(t, ok)
		assert.Equal(t, float32(1), again.Vector[0])
	})

	t.Run("keys are scoped by model", func(t *testing.T) {
		cache := NewCache(10)
		cache.Set("model-a", "h", &Embedding{Vector: []float32{1}})

		_, ok := cache.Get("model-b", "h")
		assert.False(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		cache := NewCache(2)
		cache.Set("m", "a", &Embedding{})
		cache.Set("m", "b", &Embedding{})
		cache.Set("m", "c", &Embedding{})

		assert.Equal(t, 2, cache.Size())
		_, ok := cache.Get("m", "a")
		assert.False(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		cache := NewCache(0)
		cache.Set("m", "a", &Embedding{})
		cache.Clear()
		assert.Equal(t, 0, cache.Size())
	})
}

func TestEmbed(t *testing.T) {
	emb, err := NewLocalProvider(Options{Dimension: 8})
	require.NoError(t, err)

	vec, err := Embed(context.Background(), emb, "some text")
	require.NoError(t, err)
	assert.Len(t, vec, 8)

	_, err = Embed(context.Background(), emb, "")
	assert.ErrorIs(t, err, ErrEmptyText)
}
