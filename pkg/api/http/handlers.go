package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

const (
	triggerIDHeader = "X-Trigger-ID"
	successMessage  = "Success!"
)

// MessageResponse is the body of a successful batch trigger
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth answers liveness probes
func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "Up")
}

// handleTrigger validates a trigger request and runs the pipeline in batch or
// stream mode
func (s *Server) handleTrigger(c *gin.Context) {
	req, err := bindTriggerRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	mode := s.defaultMode
	if q := c.Query("mode"); q != "" {
		m, ok := domain.ParseTriggerMode(q)
		if !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid mode: %s", q)})
			return
		}
		mode = m
	}

	if err := s.runner.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	rec := s.runner.NewRecord(mode, req)
	c.Header(triggerIDHeader, rec.ID)

	if mode == domain.TriggerModeStream {
		s.streamTrigger(c, rec, req)
		return
	}

	if err := s.runner.Run(c.Request.Context(), rec, req, nil); err != nil {
		status := http.StatusInternalServerError
		if domain.IsValidation(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: successMessage})
}

// streamTrigger writes collector output as chunked text while the pipeline runs.
// The pipeline finishes before the response is closed; a failure is reported
// as a trailing line.
func (s *Server) streamTrigger(c *gin.Context, rec *domain.TriggerRecord, req domain.TriggerRequest) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	sink := func(line string) error {
		if _, err := io.WriteString(c.Writer, line+"\n"); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := s.runner.Run(c.Request.Context(), rec, req, sink)
	if err == nil {
		return
	}

	var procErr *domain.ProcessError
	trailer := fmt.Sprintf("error: %s\n", err.Error())
	if errors.As(err, &procErr) {
		trailer = procErr.Error() + "\n"
	}
	if _, werr := io.WriteString(c.Writer, trailer); werr != nil {
		s.logger.Warn("failed to write stream trailer",
			zap.String("trigger_id", rec.ID),
			zap.Error(werr))
		return
	}
	c.Writer.Flush()
}

// handleGetTrigger returns the stored record of a trigger
func (s *Server) handleGetTrigger(c *gin.Context) {
	id := c.Param("id")

	rec, err := s.runner.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrTriggerNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("failed to get trigger record", zap.String("trigger_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// bindTriggerRequest decodes the JSON body. An empty body is an empty request.
func bindTriggerRequest(c *gin.Context) (domain.TriggerRequest, error) {
	var req domain.TriggerRequest
	if c.Request.Body == nil {
		return req, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	if err := binding.JSON.BindBody(body, &req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}
