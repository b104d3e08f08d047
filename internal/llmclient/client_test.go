package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "gemini-flash-lite-latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}
