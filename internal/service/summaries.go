package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
	"github.com/petermazzocco/slidedeck-api/internal/llm"
	"github.com/petermazzocco/slidedeck-api/internal/slideimage"
	"github.com/petermazzocco/slidedeck-api/models"
)

type GenerateInput struct {
	DeckID             string
	SlideNumber        int
	SummaryText        *string
	SlideImage         *string
	PreviousSummary    *string
	PreviousSlideImage *string
}

type RegenerateInput struct {
	DeckID      string
	SlideNumber int
	SummaryText *string
	ChatContext []string
}

type Summaries struct {
	repo   Repository
	llm    llm.Completer
	limits Limits
	log    *zap.Logger
}

func NewSummaries(repo Repository, completer llm.Completer, limits Limits, log *zap.Logger) *Summaries {
	if log == nil {
		log = zap.NewNop()
	}
	return &Summaries{repo: repo, llm: completer, limits: limits, log: log}
}

// Generate stores the summary of one slide. A supplied summary text is stored
// as-is; otherwise the slide image is summarized by the model.
func (s *Summaries) Generate(ctx context.Context, caller *auth.Caller, in GenerateInput) (*models.SlideSummary, error) {
	if in.SlideNumber < 1 {
		return nil, invalid("slide_number must be at least 1")
	}
	if _, err := ownedDeck(ctx, s.repo, caller, in.DeckID); err != nil {
		return nil, err
	}

	if text := deref(in.SummaryText); strings.TrimSpace(text) != "" {
		return s.repo.UpsertSummary(ctx, in.DeckID, in.SlideNumber, &text)
	}

	if strings.TrimSpace(deref(in.SlideImage)) == "" {
		return nil, invalid("slide_image is required when summary_text is empty")
	}
	current, err := s.normalizeImage("slide_image", *in.SlideImage)
	if err != nil {
		return nil, err
	}
	var previous string
	if strings.TrimSpace(deref(in.PreviousSlideImage)) != "" {
		previous, err = s.normalizeImage("previous_slide_image", *in.PreviousSlideImage)
		if err != nil {
			return nil, err
		}
	}

	text, err := s.llm.Complete(ctx, llm.Request{
		Model:     s.limits.SummaryModel,
		MaxTokens: s.limits.SummaryMaxTokens,
		Messages:  summaryMessages(in, current, previous),
	})
	if err != nil {
		return nil, errors.Wrap(err, "generate slide summary")
	}

	s.log.Info("slide summary generated",
		zap.String("deck_id", in.DeckID),
		zap.Int("slide_number", in.SlideNumber),
		zap.Bool("with_context", previous != "" || deref(in.PreviousSummary) != ""),
	)
	return s.repo.UpsertSummary(ctx, in.DeckID, in.SlideNumber, &text)
}

func (s *Summaries) normalizeImage(field, ref string) (string, error) {
	out, err := slideimage.Normalize(ref, s.limits.ImageMaxDimension, s.limits.ImageMaxPixels)
	switch {
	case errors.Is(err, slideimage.ErrTooLarge):
		return "", invalid("%s is too large", field)
	case err != nil:
		return "", invalid("%s must be an http(s) URL or a base64 image data URL", field)
	}
	return out, nil
}

// Regenerate rewrites a slide summary in light of the chat about it and
// returns the stored record together with the new text.
func (s *Summaries) Regenerate(ctx context.Context, caller *auth.Caller, in RegenerateInput) (*models.SlideSummary, string, error) {
	if in.SlideNumber < 1 {
		return nil, "", invalid("slide_number must be at least 1")
	}
	if _, err := ownedDeck(ctx, s.repo, caller, in.DeckID); err != nil {
		return nil, "", err
	}

	existing := deref(in.SummaryText)
	if strings.TrimSpace(existing) == "" {
		summaries, err := s.repo.ListSummaries(ctx, in.DeckID)
		if err != nil {
			return nil, "", err
		}
		for _, sm := range summaries {
			if sm.SlideNumber == in.SlideNumber {
				existing = deref(sm.SummaryText)
				break
			}
		}
	}

	text, err := s.llm.Complete(ctx, llm.Request{
		Model:     s.limits.SummaryModel,
		MaxTokens: s.limits.RegenerateMaxTokens,
		Messages:  regenerateMessages(in.SlideNumber, existing, in.ChatContext),
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "regenerate slide summary")
	}

	summary, err := s.repo.UpsertSummary(ctx, in.DeckID, in.SlideNumber, &text)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("slide summary regenerated",
		zap.String("deck_id", in.DeckID),
		zap.Int("slide_number", in.SlideNumber),
		zap.Int("chat_lines", len(in.ChatContext)),
	)
	return summary, text, nil
}

func (s *Summaries) List(ctx context.Context, caller *auth.Caller, deckID string) ([]models.SlideSummary, error) {
	if _, err := ownedDeck(ctx, s.repo, caller, deckID); err != nil {
		return nil, err
	}
	return s.repo.ListSummaries(ctx, deckID)
}
