package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorRoundTrip(t *testing.T) {
	original := []float32{0.1, -0.5, 3.25, 0, 1e-7}

	blob := serializeVector(original)
	assert.Len(t, blob, len(original)*4)

	restored := deserializeVector(blob)
	assert.Equal(t, original, restored)
}

func TestVectorRoundTripEmpty(t *testing.T) {
	blob := serializeVector(nil)
	assert.Empty(t, blob)
	assert.Empty(t, deserializeVector(blob))
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{0.3, 0.4, 0.5}
	assert.InDelta(t, 1.0, cosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	assert.Equal(t, 0.0, cosineSimilarity(a, b))
}

func TestCosineSimilarityOppositeClampedToZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	assert.Equal(t, 0.0, cosineSimilarity(a, b))
}

func TestCosineSimilarityMismatchedLengths(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0}
	assert.Equal(t, 0.0, cosineSimilarity(a, b))
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	assert.Equal(t, 0.0, cosineSimilarity(a, b))
}
