package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aura-labs/aura/internal/domain"
)

// Generator defines the interface for LLM answer generation
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NoAnswerText is returned when retrieval finds nothing relevant enough to
// ground an answer on.
const NoAnswerText = "The document does not contain enough information to answer this question."

// Synthesizer turns a question and its retrieved chunks into a grounded
// answer with source attribution.
type Synthesizer struct {
	generator Generator
}

func NewSynthesizer(generator Generator) *Synthesizer {
	return &Synthesizer{generator: generator}
}

// modelAnswer is the structured output requested from the model.
type modelAnswer struct {
	Answer     string   `json:"answer"`
	Sources    []int    `json:"sources"`
	Confidence *float64 `json:"confidence"`
}

// Answer generates an answer for a question from its retrieved context.
// With no chunks it returns a fixed no-answer response without calling the
// model. A response that is not valid JSON is kept verbatim as the answer
// text, attributed to every chunk, with no confidence.
func (s *Synthesizer) Answer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (*domain.Answer, error) {
	if len(chunks) == 0 {
		return &domain.Answer{
			Question:   question,
			Answer:     NoAnswerText,
			Sources:    []string{},
			Confidence: domain.ConfidenceValue(0),
		}, nil
	}

	raw, err := s.generator.Generate(ctx, buildPrompt(question, chunks))
	if err != nil {
		return nil, err
	}

	parsed, ok := parseModelAnswer(raw)
	if !ok {
		sources := make([]string, len(chunks))
		for i, chunk := range chunks {
			sources[i] = chunk.Text
		}
		return &domain.Answer{
			Question: question,
			Answer:   strings.TrimSpace(raw),
			Sources:  sources,
		}, nil
	}

	sources := make([]string, 0, len(parsed.Sources))
	for _, idx := range parsed.Sources {
		// Model indices are 1-based; out-of-range references are dropped.
		if idx >= 1 && idx <= len(chunks) {
			sources = append(sources, chunks[idx-1].Text)
		}
	}

	confidence := parsed.Confidence
	if confidence != nil {
		clamped := *confidence
		if clamped < 0 {
			clamped = 0
		}
		if clamped > 1 {
			clamped = 1
		}
		confidence = &clamped
	}

	return &domain.Answer{
		Question:   question,
		Answer:     strings.TrimSpace(parsed.Answer),
		Sources:    sources,
		Confidence: confidence,
	}, nil
}

func buildPrompt(question string, chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("You are answering a question using only the numbered context passages below. ")
	b.WriteString("If the passages do not contain the answer, say so. Do not use outside knowledge.\n\n")

	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, chunk.Text)
	}

	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Respond with a single JSON object and nothing else, in this exact shape:\n")
	b.WriteString(`{"answer": "<your answer>", "sources": [<passage numbers used>], "confidence": <0.0 to 1.0>}`)
	return b.String()
}

// parseModelAnswer extracts structured output, tolerating markdown code
// fences around the JSON.
func parseModelAnswer(raw string) (*modelAnswer, bool) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed modelAnswer
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, false
	}
	if strings.TrimSpace(parsed.Answer) == "" {
		return nil, false
	}
	return &parsed, true
}
