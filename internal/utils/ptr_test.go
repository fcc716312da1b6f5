package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtrEqual(t *testing.T) {
	assert.True(t, PtrEqual[int](nil, nil))
	assert.False(t, PtrEqual(Ptr(1), nil))
	assert.False(t, PtrEqual(nil, Ptr(1)))
	assert.True(t, PtrEqual(Ptr(3), Ptr(3)))
	assert.False(t, PtrEqual(Ptr(3), Ptr(4)))
}

func TestStringOrNil(t *testing.T) {
	assert.Nil(t, StringOrNil("  \t"))
	assert.Equal(t, "Ana", OrZero(StringOrNil("  Ana ")))
	assert.Equal(t, "", OrZero[string](nil))
}
