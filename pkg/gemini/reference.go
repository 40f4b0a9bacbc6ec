package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// SentinelUnparseable replaces a reference answer whose response could not be decoded.
const SentinelUnparseable = "[error decoding Gemini reference answer]"

// StatusSentinel is the reference text used when Gemini answers with a non-200 status.
func StatusSentinel(code int, body string) string {
	return fmt.Sprintf("%s %d %s]", connectPrefix, code, body)
}

// TransportSentinel is the reference text used when the request never completed.
func TransportSentinel(err error) string {
	return fmt.Sprintf("%s %v]", connectPrefix, err)
}

const connectPrefix = "[error connecting to Gemini:"

// IsSentinel reports whether text is one of the failure texts returned by
// GenerateReference rather than a generated answer.
func IsSentinel(text string) bool {
	text = strings.TrimSpace(text)
	return text == SentinelUnparseable || (strings.HasPrefix(text, connectPrefix) && strings.HasSuffix(text, "]"))
}

// GenerateReference implements grading.AnswerGenerator. Failures are returned
// as sentinel text so grading can always proceed.
func (c *Client) GenerateReference(ctx context.Context, question, hint string) string {
	text, err := c.Generate(ctx, ReferencePrompt(question, hint))
	if err == nil {
		return text
	}
	log.Printf("GEMINI reference generation failed: %v", err)
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return StatusSentinel(se.Code, se.Body)
	case errors.Is(err, ErrUnparseable):
		return SentinelUnparseable
	default:
		return TransportSentinel(err)
	}
}

// ReferencePrompt is the question itself, with a target language appended when given.
func ReferencePrompt(question, hint string) string {
	question = strings.TrimSpace(question)
	if h := strings.TrimSpace(hint); h != "" {
		return fmt.Sprintf("%s\n\nAnswer with code written in %s.", question, h)
	}
	return question
}
