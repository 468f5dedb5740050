package service

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/aura-labs/aura/internal/domain"
	"github.com/aura-labs/aura/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxQuestions bounds a single run; larger batches should be split by
	// the caller.
	MaxQuestions      = 10
	MaxQuestionLength = 1000
)

// DocumentIngester defines the interface for ensuring a document is indexed
type DocumentIngester interface {
	EnsureIngested(ctx context.Context, documentURL string) (*domain.IngestionRecord, error)
}

// ChunkRetriever defines the interface for retrieving question context
type ChunkRetriever interface {
	Retrieve(ctx context.Context, namespace, question string) ([]domain.RetrievedChunk, error)
}

// AnswerSynthesizer defines the interface for generating grounded answers
type AnswerSynthesizer interface {
	Answer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (*domain.Answer, error)
}

// QueryLogWriter records answered questions; writes are best effort
type QueryLogWriter interface {
	Create(ctx context.Context, entry *domain.QueryLog) (string, error)
}

// RunRequest is one document question-answering run.
type RunRequest struct {
	DocumentURL string
	Questions   []string
	RequestID   string
}

// RunResult holds the answers for a run, in question order.
type RunResult struct {
	DocumentURL      string
	Answers          []domain.Answer
	ProcessingTimeMs int64
}

// PipelineService orchestrates the full run: ensure the document is
// ingested, then retrieve and answer every question concurrently.
type PipelineService struct {
	ingester        DocumentIngester
	retriever       ChunkRetriever
	synthesizer     AnswerSynthesizer
	queryLogs       QueryLogWriter
	questionTimeout time.Duration
}

// NewPipelineService creates a new PipelineService. The query log writer may
// be nil to disable logging.
func NewPipelineService(
	ingester DocumentIngester,
	retriever ChunkRetriever,
	synthesizer AnswerSynthesizer,
	queryLogs QueryLogWriter,
	questionTimeout time.Duration,
) *PipelineService {
	if questionTimeout <= 0 {
		questionTimeout = 30 * time.Second
	}
	return &PipelineService{
		ingester:        ingester,
		retriever:       retriever,
		synthesizer:     synthesizer,
		queryLogs:       queryLogs,
		questionTimeout: questionTimeout,
	}
}

// Run answers every question against the document at the given URL. Answers
// come back in question order. A failure on one question does not abort the
// others; the failed slot carries an explanatory answer instead.
func (s *PipelineService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()

	if err := validateRunRequest(req); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "pipeline.run", telemetry.SpanAttributes{
		DocumentURL: req.DocumentURL,
		Operation:   "run",
	})
	defer span.End()

	rec, err := s.ingester.EnsureIngested(ctx, req.DocumentURL)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answers := make([]domain.Answer, len(req.Questions))

	g, gctx := errgroup.WithContext(ctx)
	for i, question := range req.Questions {
		g.Go(func() error {
			answers[i] = s.answerQuestion(gctx, rec.Namespace, question)
			return nil
		})
	}
	// Workers never return errors; failures land in the answer slots.
	_ = g.Wait()

	result := &RunResult{
		DocumentURL:      req.DocumentURL,
		Answers:          answers,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	s.logRun(ctx, req, result)

	return result, nil
}

func (s *PipelineService) answerQuestion(ctx context.Context, namespace, question string) domain.Answer {
	qctx, cancel := context.WithTimeout(ctx, s.questionTimeout)
	defer cancel()

	chunks, err := s.retriever.Retrieve(qctx, namespace, question)
	if err != nil {
		return failedAnswer(question, err)
	}

	answer, err := s.synthesizer.Answer(qctx, question, chunks)
	if err != nil {
		return failedAnswer(question, err)
	}
	return *answer
}

func failedAnswer(question string, err error) domain.Answer {
	text := "Failed to answer this question: " + err.Error()
	if domainErr, ok := err.(*domain.DomainError); ok {
		text = "Failed to answer this question: " + domainErr.Message
	}
	return domain.Answer{
		Question:   question,
		Answer:     text,
		Sources:    []string{},
		Confidence: domain.ConfidenceValue(0),
	}
}

func (s *PipelineService) logRun(ctx context.Context, req RunRequest, result *RunResult) {
	if s.queryLogs == nil {
		return
	}

	for _, answer := range result.Answers {
		_, err := s.queryLogs.Create(ctx, &domain.QueryLog{
			DocumentURL:      req.DocumentURL,
			Question:         answer.Question,
			Answer:           answer.Answer,
			Sources:          answer.Sources,
			Confidence:       answer.Confidence,
			ProcessingTimeMs: result.ProcessingTimeMs,
			RequestID:        req.RequestID,
		})
		if err != nil {
			log.Printf("failed to write query log: %v", err)
		}
	}
}

func validateRunRequest(req RunRequest) error {
	u, err := url.Parse(req.DocumentURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.ErrInvalidDocumentURL
	}

	if len(req.Questions) == 0 {
		return domain.ErrNoQuestions
	}
	if len(req.Questions) > MaxQuestions {
		return domain.ErrTooManyQuestions
	}

	for _, question := range req.Questions {
		if strings.TrimSpace(question) == "" {
			return domain.ErrEmptyQuestion
		}
		if len([]rune(question)) > MaxQuestionLength {
			return domain.ErrQuestionTooLong
		}
	}
	return nil
}
