package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/zioncity/backend/internal/utils"
)

// MockAssistant answers deterministically without a model behind it.
type MockAssistant struct {
	ModelVersion string
}

func (m MockAssistant) Ask(ctx context.Context, prompt string, history []ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	openers := []string{
		"Вот что мне удалось найти",
		"Посмотрите эти варианты",
		"Я подобрал несколько вариантов",
	}
	h := utils.Fingerprint(m.ModelVersion, prompt)
	subject := strings.TrimSpace(prompt)
	if len([]rune(subject)) > 80 {
		subject = string([]rune(subject)[:80]) + "…"
	}
	return fmt.Sprintf("%s по запросу «%s».", openers[int(h%uint64(len(openers)))], subject), nil
}
