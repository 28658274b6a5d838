package memzero_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sigchat/internal/util/memzero"
)

func TestZero(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{0xff}
	memzero.All(a, b, nil)
	require.Equal(t, []byte{0, 0, 0}, a)
	require.Equal(t, []byte{0}, b)
}
