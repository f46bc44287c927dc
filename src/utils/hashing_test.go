package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringToReadableHash(t *testing.T) {
	a := StringToReadableHash("6c9d4a31f6d3470d8c8e3f1a2b5c7d90")
	b := StringToReadableHash("6c9d4a31f6d3470d8c8e3f1a2b5c7d90")
	c := StringToReadableHash("another-id")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEmpty(t, a)
}
