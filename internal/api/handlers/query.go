package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aura-labs/aura/internal/api"
	"github.com/aura-labs/aura/internal/api/middleware"
	"github.com/aura-labs/aura/internal/service"
)

type Pipeline interface {
	Run(ctx context.Context, req service.RunRequest) (*service.RunResult, error)
}

type QueryHandler struct {
	pipeline Pipeline
}

func NewQueryHandler(pipeline Pipeline) *QueryHandler {
	return &QueryHandler{pipeline: pipeline}
}

type RunRequest struct {
	DocumentURL string   `json:"document_url"`
	Questions   []string `json:"questions"`
}

// Run answers a batch of questions against a document URL.
func (h *QueryHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.pipeline.Run(r.Context(), service.RunRequest{
		DocumentURL: req.DocumentURL,
		Questions:   req.Questions,
		RequestID:   middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	answers := make([]api.AnswerPayload, len(result.Answers))
	for i, answer := range result.Answers {
		sources := answer.Sources
		if sources == nil {
			sources = []string{}
		}
		answers[i] = api.AnswerPayload{
			Question:   answer.Question,
			Answer:     answer.Answer,
			Sources:    sources,
			Confidence: answer.Confidence,
		}
	}

	api.JSON(w, http.StatusOK, api.RunResponse{
		Success:          true,
		DocumentURL:      result.DocumentURL,
		Answers:          answers,
		ProcessingTimeMs: result.ProcessingTimeMs,
	})
}
