package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	for _, path := range [][]string{
		{"serve"},
		{"worker"},
		{"migrate", "up"},
		{"migrate", "status"},
		{"analyze"},
		{"requeue"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	requeue, _, err := root.Find([]string{"requeue"})
	require.NoError(t, err)
	assert.NotNil(t, requeue.Flags().Lookup("older-than"))
}

func TestAnalyzeRequiresOneArgument(t *testing.T) {
	cmd := NewAnalyzeCmd()
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"doc-1"}))
}
