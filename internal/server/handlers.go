package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/askdb/internal/pipeline"
	"github.com/jonathan/askdb/internal/schemas"
	"github.com/jonathan/askdb/internal/server/middleware"
	"github.com/jonathan/askdb/internal/types"
	docs "github.com/jonathan/askdb/schemas"
)

// maxAskBody bounds the request body of the ask endpoints
const maxAskBody = 64 << 10

// Stream completion statuses
const (
	statusAnswered = "answered"
	statusFailed   = "failed"
	statusError    = "error"
)

// AskResponse is the body of a successful POST /ask. Error is set when the
// query succeeded but the summary could not be produced.
type AskResponse struct {
	RequestID string `json:"request_id"`
	*types.Answer
	Error string `json:"error,omitempty"`
}

// decodeQuestion reads and validates an ask request body
func (s *Server) decodeQuestion(w http.ResponseWriter, r *http.Request) (types.Question, error) {
	var q types.Question

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAskBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return q, &ErrValidation{Field: "body", Message: "request body too large"}
		}
		return q, &ErrValidation{Field: "body", Message: err.Error()}
	}
	if !json.Valid(body) {
		return q, &ErrValidation{Field: "body", Message: "request body is not valid JSON"}
	}
	if err := schemas.Validate(docs.AskRequest, body); err != nil {
		return q, err
	}
	if err := json.Unmarshal(body, &q); err != nil {
		return q, &ErrValidation{Field: "body", Message: err.Error()}
	}

	// An authenticated caller is always identified by the token
	if name, err := middleware.GetUserName(r); err == nil {
		q.UserName = name
	}
	return q, nil
}

// answerError returns the error to report for a run, or nil when the answer is usable
func answerError(r *http.Request, answer *types.Answer, err error) error {
	if err == nil || answer.Succeeded() {
		return nil
	}
	if ctxErr := r.Context().Err(); ctxErr != nil {
		return &ErrCancelled{Cause: err}
	}
	return err
}

// handleAsk answers one question and returns the whole answer
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	q, err := s.decodeQuestion(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	id := requestID(r)
	answer, err := s.asker.RunWithProgress(r.Context(), q, nil)
	if failure := answerError(r, answer, err); failure != nil {
		s.logger.Error("ask failed", "request_id", id, "error", failure)
		s.errorResponse(w, HTTPStatus(failure), failure.Error())
		return
	}

	resp := AskResponse{RequestID: id, Answer: answer}
	if err != nil {
		resp.Error = err.Error()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleAskStream answers one question and streams progress via SSE
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	q, err := s.decodeQuestion(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	id := requestID(r)
	stream, err := newEventStream(w, id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	answer, err := s.asker.RunWithProgress(r.Context(), q, func(event pipeline.ProgressEvent) {
		if err := stream.progress(event); err != nil {
			s.logger.Warn("error writing SSE event", "request_id", id, "error", err)
		}
	})
	if failure := answerError(r, answer, err); failure != nil {
		s.logger.Error("streamed ask failed", "request_id", id, "error", failure)
		stream.fail(failure.Error())
		stream.complete(statusError)
		return
	}

	resp := AskResponse{RequestID: id, Answer: answer}
	if err != nil {
		resp.Error = err.Error()
	}
	if err := stream.answer(resp); err != nil {
		s.logger.Warn("error writing SSE answer", "request_id", id, "error", err)
	}

	status := statusAnswered
	if answer.Failure != "" {
		status = statusFailed
	}
	stream.complete(status)
}
