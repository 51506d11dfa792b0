package oidc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewId(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	id, err := NewId("")
	require.NoError(err)
	assert.NotEmpty(id)

	prefixed, err := NewId("req")
	require.NoError(err)
	assert.True(strings.HasPrefix(prefixed, "req_"))

	other, err := NewId("req")
	require.NoError(err)
	assert.NotEqual(prefixed, other)
}
