package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docask/docask/internal/ai"
	appErr "github.com/docask/docask/internal/pkg/errors"
	"github.com/docask/docask/internal/vectorindex"
)

// DeclineAnswer is returned verbatim when no retrieved chunk clears
// the similarity floor. No generation call is made in that case.
const DeclineAnswer = "I could not find relevant information in your documents to answer this question."

const answerPromptHeader = `You are a careful assistant answering questions about the user's documents.
Use ONLY the numbered sources below. Cite sources inline with their tags, for example [S1] or [S2].
If the sources do not contain the answer, say so plainly instead of guessing.`

// Synthesizer turns retrieved chunks into a grounded answer. The
// prompt carries each chunk under a [Sn] tag matching its position in
// the returned sources list.
type Synthesizer struct {
	generator ai.IGenerator
	maxTokens int
}

func NewSynthesizer(generator ai.IGenerator, maxTokens int) *Synthesizer {
	return &Synthesizer{generator: generator, maxTokens: maxTokens}
}

type SynthesisResult struct {
	Answer        string
	Grounded      bool
	ContextLength int
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, matches []vectorindex.Match, temperature float32) (*SynthesisResult, error) {
	if len(matches) == 0 {
		return &SynthesisResult{Answer: DeclineAnswer, Grounded: false}, nil
	}
	prompt, contextLength := buildAnswerPrompt(question, matches)
	answer, err := s.generator.Generate(ctx, prompt, ai.GenOptions{
		Temperature: temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", appErr.ErrGenerationUnavailable, err)
		}
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: empty completion", appErr.ErrGenerationUnavailable)
	}
	return &SynthesisResult{
		Answer:        answer,
		Grounded:      true,
		ContextLength: contextLength,
	}, nil
}

func (s *Synthesizer) ModelName() string {
	return s.generator.ModelName()
}

func (s *Synthesizer) Ping(ctx context.Context) error {
	return s.generator.Ping(ctx)
}

func buildAnswerPrompt(question string, matches []vectorindex.Match) (string, int) {
	var b strings.Builder
	b.WriteString(answerPromptHeader)
	b.WriteString("\n\nSources:\n")
	contextLength := 0
	for i, m := range matches {
		contextLength += len([]rune(m.Chunk.Content))
		fmt.Fprintf(&b, "[S%d] %s\n\n", i+1, strings.TrimSpace(m.Chunk.Content))
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String(), contextLength
}
