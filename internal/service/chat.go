package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
	"github.com/petermazzocco/slidedeck-api/internal/llm"
)

type ChatInput struct {
	UserMessage  string
	SlideDeckID  *string
	SlideNumber  *int
	SlideSummary *string
	ChatHistory  []string
}

// Chat answers questions about a slide. History is supplied by the client on
// every turn; nothing is persisted.
type Chat struct {
	repo   Repository
	llm    llm.Completer
	limits Limits
}

func NewChat(repo Repository, completer llm.Completer, limits Limits) *Chat {
	return &Chat{repo: repo, llm: completer, limits: limits}
}

func (c *Chat) Reply(ctx context.Context, caller *auth.Caller, in ChatInput) (string, error) {
	if err := requireCaller(caller); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.UserMessage) == "" {
		return "", invalid("userMessage is required")
	}
	if id := deref(in.SlideDeckID); id != "" {
		if _, err := ownedDeck(ctx, c.repo, caller, id); err != nil {
			return "", err
		}
	}

	text, err := c.llm.Complete(ctx, llm.Request{
		Model:     c.limits.ChatModel,
		MaxTokens: c.limits.ChatMaxTokens,
		Messages:  chatMessages(in),
	})
	if err != nil {
		return "", errors.Wrap(err, "chat reply")
	}
	return text, nil
}
