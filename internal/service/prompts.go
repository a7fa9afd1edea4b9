package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/petermazzocco/slidedeck-api/internal/llm"
)

const noSummaryPlaceholder = "No summary available"

const (
	summarySystemPrompt = "You are an expert academic slide summarizer. Analyze the slide image and generate a concise, informative summary."

	summaryWithContextSystemPrompt = "You are an expert academic slide summarizer. You are shown the previous slide for context " +
		"followed by the current slide, which is always the last image. Summarize only the current slide, " +
		"concisely and informatively, connecting it to the previous slide where that helps understanding."

	regenerateSystemPrompt = "You are an expert academic slide summarizer. Rewrite slide summaries so they stay accurate " +
		"while addressing what the student asked about."

	chatSystemPrompt = "You are an academic assistant helping a student understand slide content."
)

// summaryMessages builds the vision prompt for one slide. Images are ordered
// previous first, current last.
func summaryMessages(in GenerateInput, current, previous string) []llm.Message {
	hasContext := previous != "" || strings.TrimSpace(deref(in.PreviousSummary)) != ""
	if !hasContext {
		return []llm.Message{
			{Role: llm.RoleSystem, Text: summarySystemPrompt},
			{
				Role:   llm.RoleUser,
				Text:   fmt.Sprintf("Slide %d.\n\nPlease generate a precise, academic summary of this slide.", in.SlideNumber),
				Images: []string{current},
			},
		}
	}

	prevSummary := strings.TrimSpace(deref(in.PreviousSummary))
	if prevSummary == "" {
		prevSummary = noSummaryPlaceholder
	}
	images := []string{current}
	layout := "The image is the current slide."
	if previous != "" {
		images = []string{previous, current}
		layout = "The first image is the previous slide and the last image is the current slide."
	}

	text := fmt.Sprintf(
		"Previous slide summary: %s\n\nCurrent slide: %d. %s\n\nPlease generate a precise, academic summary of the current slide.",
		prevSummary, in.SlideNumber, layout,
	)
	return []llm.Message{
		{Role: llm.RoleSystem, Text: summaryWithContextSystemPrompt},
		{Role: llm.RoleUser, Text: text, Images: images},
	}
}

func regenerateMessages(slideNumber int, existing string, chatContext []string) []llm.Message {
	if strings.TrimSpace(existing) == "" {
		existing = noSummaryPlaceholder
	}
	conversation := "None"
	if lines := nonEmpty(chatContext); len(lines) > 0 {
		conversation = strings.Join(lines, "\n")
	}

	text := fmt.Sprintf(
		"Slide %d\nCurrent summary: %s\n\nConversation about this slide:\n%s\n\n"+
			"Rewrite the summary of this slide so it also covers the points raised in the conversation. "+
			"Keep it concise and academic. Reply with the summary only.",
		slideNumber, existing, conversation,
	)
	return []llm.Message{
		{Role: llm.RoleSystem, Text: regenerateSystemPrompt},
		{Role: llm.RoleUser, Text: text},
	}
}

func chatMessages(in ChatInput) []llm.Message {
	slide := "unknown"
	if in.SlideNumber != nil {
		slide = strconv.Itoa(*in.SlideNumber)
	}
	summary := strings.TrimSpace(deref(in.SlideSummary))
	if summary == "" {
		summary = noSummaryPlaceholder
	}

	text := fmt.Sprintf(
		"Current Slide (%s): %s\nPrevious Conversation: %s\n\nUser Question: %s\n\n"+
			"Please provide a helpful, concise, and academic response that directly addresses the user's question while referencing the slide context.",
		slide, summary, strings.Join(nonEmpty(in.ChatHistory), " "), in.UserMessage,
	)
	return []llm.Message{
		{Role: llm.RoleSystem, Text: chatSystemPrompt},
		{Role: llm.RoleUser, Text: text},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
