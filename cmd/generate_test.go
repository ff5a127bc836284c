package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSpecification_FromArgument(t *testing.T) {
	spec, err := readSpecification([]string{"a todo app with auth"})
	require.NoError(t, err)
	assert.Equal(t, "a todo app with auth", spec)
}

func TestReadSpecification_EmptyArgumentRejected(t *testing.T) {
	_, err := readSpecification([]string{"   "})
	assert.Error(t, err)
}
