package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatPrompt(t *testing.T) {
	completer := &stubCompleter{reply: "Entropy measures disorder."}
	c := NewChat(untouchedRepo{}, completer, DefaultLimits())

	got, err := c.Reply(context.Background(), caller("user-1"), ChatInput{
		UserMessage:  "What is entropy?",
		SlideNumber:  ptr(3),
		SlideSummary: ptr("Second law of thermodynamics."),
		ChatHistory:  []string{"User: hi", "Assistant: hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Entropy measures disorder.", got)

	req := completer.requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 250, req.MaxTokens)
	assert.Equal(t, chatSystemPrompt, req.Messages[0].Text)
	prompt := req.Messages[1].Text
	assert.Contains(t, prompt, "Current Slide (3): Second law of thermodynamics.")
	assert.Contains(t, prompt, "Previous Conversation: User: hi Assistant: hello")
	assert.Contains(t, prompt, "User Question: What is entropy?")
}

func TestChatPlaceholderSummary(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	c := NewChat(untouchedRepo{}, completer, DefaultLimits())

	_, err := c.Reply(context.Background(), caller("user-1"), ChatInput{UserMessage: "Explain"})
	require.NoError(t, err)
	assert.Contains(t, completer.requests[0].Messages[1].Text, "Current Slide (unknown): No summary available")
}

func TestChatValidatesAndChecksDeck(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	repo := newRepo(t)
	deck, err := repo.CreateDeck(context.Background(), "user-1", "Deck", deckURL, 0)
	require.NoError(t, err)
	c := NewChat(repo, completer, DefaultLimits())

	_, err = c.Reply(context.Background(), caller("user-1"), ChatInput{UserMessage: "  "})
	_, ok := IsValidation(err)
	assert.True(t, ok)

	_, err = c.Reply(context.Background(), caller("user-2"), ChatInput{UserMessage: "hi", SlideDeckID: ptr(deck.ID)})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = c.Reply(context.Background(), caller("user-1"), ChatInput{UserMessage: "hi", SlideDeckID: ptr(deck.ID)})
	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls())
}

func TestChatModelFailure(t *testing.T) {
	completer := &stubCompleter{err: errors.New("upstream 503")}
	c := NewChat(untouchedRepo{}, completer, DefaultLimits())

	_, err := c.Reply(context.Background(), caller("user-1"), ChatInput{UserMessage: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 503")
}
