package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyOptions(t *testing.T) {
	t.Run("no options", func(t *testing.T) {
		o := ApplyOptions()
		assert.Empty(t, o.Model)
		assert.Empty(t, o.SystemPrompt)
		assert.False(t, o.AutoCleanup)
	})

	t.Run("all options", func(t *testing.T) {
		o := ApplyOptions(
			WithModel("gpt-4o"),
			WithSystemPrompt("be brief"),
			WithAutoCleanup(),
		)
		assert.Equal(t, "gpt-4o", o.Model)
		assert.Equal(t, "be brief", o.SystemPrompt)
		assert.True(t, o.AutoCleanup)
	})

	t.Run("later options win", func(t *testing.T) {
		o := ApplyOptions(WithModel("a"), WithModel("b"))
		assert.Equal(t, "b", o.Model)
	})
}

func TestProviderNames(t *testing.T) {
	names := ProviderNames()
	assert.Len(t, names, 5)
	assert.Contains(t, names, ProviderChatGPT)
	assert.Contains(t, names, ProviderChatGPTStream)
	assert.Equal(t, "google", ProviderGoogle.String())
}
