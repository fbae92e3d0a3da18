package variator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"mensageiro/internal/models"

	"github.com/sirupsen/logrus"
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)
	// Verification-code-like tokens: standalone runs of 4 to 8 digits.
	codePattern = regexp.MustCompile(`\b\d{4,8}\b`)

	// Personal data pinned only when redaction is on: phone-like digit runs
	// and email addresses.
	phonePattern = regexp.MustCompile(`[+(]?\d[\d\s().-]{8,}\d`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// Generator produces a natural-language paraphrase of the given content.
type Generator interface {
	Paraphrase(ctx context.Context, content string) (string, error)
}

// Variator rewrites resolved template content to reduce spam-detection risk
// on otherwise-identical blasts. It is strictly best-effort: any problem with
// the external generator returns the original content unchanged.
type Variator struct {
	generator Generator
	minLength int
	redactPII bool
	logger    *logrus.Logger
}

func New(generator Generator, cfg models.VariatorConfig, logger *logrus.Logger) *Variator {
	return &Variator{
		generator: generator,
		minLength: cfg.MinLength,
		redactPII: cfg.RedactPersonalData,
		logger:    logger,
	}
}

// Vary paraphrases content while keeping every URL and verification code
// byte-identical. URLs and codes are swapped for positional placeholders
// before the generator call so the generator cannot corrupt them, then the
// literals are substituted back into its output.
func (v *Variator) Vary(ctx context.Context, content string) string {
	if v.generator == nil || strings.TrimSpace(content) == "" {
		return content
	}

	pinned, literals := pinLiterals(content, v.redactPII)

	generated, err := v.generator.Paraphrase(ctx, pinned)
	if err != nil {
		v.logger.WithError(err).Warn("Content generator unavailable, sending original content")
		return content
	}

	restored, ok := restoreLiterals(generated, literals)
	if !ok {
		v.logger.Warn("Generator dropped a pinned placeholder, sending original content")
		return content
	}

	if len([]rune(restored)) < v.minLength {
		v.logger.WithField("length", len(restored)).Warn("Generated content implausibly short, sending original content")
		return content
	}

	return restored
}

type literal struct {
	placeholder string
	value       string
}

func pinLiterals(content string, redactPII bool) (string, []literal) {
	var literals []literal

	pin := func(label string) func(string) string {
		idx := 0
		return func(match string) string {
			idx++
			placeholder := fmt.Sprintf("[[%s_%d]]", label, idx)
			literals = append(literals, literal{placeholder: placeholder, value: match})
			return placeholder
		}
	}

	pinned := urlPattern.ReplaceAllStringFunc(content, pin("URL"))
	if redactPII {
		pinned = emailPattern.ReplaceAllStringFunc(pinned, pin("EMAIL"))
		pinned = phonePattern.ReplaceAllStringFunc(pinned, pin("PHONE"))
	}
	pinned = codePattern.ReplaceAllStringFunc(pinned, pin("CODE"))

	return pinned, literals
}

func restoreLiterals(content string, literals []literal) (string, bool) {
	for _, lit := range literals {
		if !strings.Contains(content, lit.placeholder) {
			return "", false
		}
		content = strings.ReplaceAll(content, lit.placeholder, lit.value)
	}
	return content, true
}
