package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListSetAppendsInOrder(t *testing.T) {
	var s stringList
	require.NoError(t, s.Set("include/board"))
	require.NoError(t, s.Set("include/vendor"))

	assert.Equal(t, stringList{"include/board", "include/vendor"}, s)
}

func TestStringListStringRendersUnderlyingSlice(t *testing.T) {
	s := stringList{"a", "b"}
	assert.Equal(t, "[a b]", s.String())

	var empty stringList
	assert.Equal(t, "[]", empty.String())
}
