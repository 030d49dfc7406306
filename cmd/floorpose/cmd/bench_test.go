package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchCommand(t *testing.T) {
	output, err := executeCommand(t, "bench", "--scene", "square", "-n", "2", "-f", "json")
	require.NoError(t, err)

	var got []struct {
		Name       string `json:"name"`
		Iterations int    `json:"iterations"`
		Error      string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	require.Len(t, got, 5)
	for _, r := range got {
		assert.Equal(t, 2, r.Iterations, r.Name)
		assert.Empty(t, r.Error, r.Name)
	}
}

func TestBenchCommandErrors(t *testing.T) {
	_, err := executeCommand(t, "bench", "--scene", "mars", "-n", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scene")

	_, err = executeCommand(t, "bench", "-n", "0")
	require.Error(t, err)
}
