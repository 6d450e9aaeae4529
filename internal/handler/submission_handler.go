package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartbin/portal/internal/model"
	"smartbin/portal/internal/service"
	"smartbin/portal/pkg/response"
)

// maxFormBytes caps public form bodies.
const maxFormBytes = 64 << 10

// FormLimiter throttles anonymous submissions by client IP.
type FormLimiter interface {
	Allow(ctx context.Context, ip string) (bool, error)
}

type SubmissionHandler struct {
	submissionService service.SubmissionService
	limiter           FormLimiter
}

// NewSubmissionHandler builds the handler. limiter may be nil.
func NewSubmissionHandler(submissionService service.SubmissionService, limiter FormLimiter) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService, limiter: limiter}
}

// allow applies the per-IP limit and writes the error response when the
// request must stop.
func (h *SubmissionHandler) allow(c *gin.Context) bool {
	if h.limiter == nil {
		return true
	}
	ok, err := h.limiter.Allow(c.Request.Context(), c.ClientIP())
	if err != nil {
		response.InternalError(c, "failed to check submission rate")
		return false
	}
	if !ok {
		response.TooManyRequests(c, "too many submissions, try again later")
		return false
	}
	return true
}

type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

type CareerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone"`
	Position string `json:"position" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

type submissionAck struct {
	ID     string                 `json:"id"`
	Status model.SubmissionStatus `json:"status"`
}

func (h *SubmissionHandler) Contact(c *gin.Context) {
	if !h.allow(c) {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFormBytes)
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	h.submit(c, model.SubmissionContact, service.SubmissionInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Subject: req.Subject,
		Message: req.Message,
	})
}

func (h *SubmissionHandler) Career(c *gin.Context) {
	if !h.allow(c) {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFormBytes)
	var req CareerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	h.submit(c, model.SubmissionCareer, service.SubmissionInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Position,
		Message: req.Message,
	})
}

// submit answers with the ID only; the stored record is not echoed back
// to anonymous callers.
func (h *SubmissionHandler) submit(c *gin.Context, kind model.SubmissionKind, in service.SubmissionInput) {
	sub, err := h.submissionService.Submit(c.Request.Context(), kind, in)
	if err != nil {
		writeSubmissionError(c, err, "failed to store submission")
		return
	}
	response.Created(c, submissionAck{ID: sub.ID.String(), Status: sub.Status})
}

func (h *SubmissionHandler) List(c *gin.Context) {
	p := parsePagination(c)
	subs, total, err := h.submissionService.List(c.Request.Context(), model.SubmissionKind(c.Query("kind")), p)
	if err != nil {
		writeSubmissionError(c, err, "failed to list submissions")
		return
	}
	response.Paged(c, subs, total, p.Page, p.PageSize)
}

func (h *SubmissionHandler) Review(c *gin.Context) {
	reviewerID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sub, err := h.submissionService.Review(c.Request.Context(), reviewerID, id)
	if err != nil {
		writeSubmissionError(c, err, "failed to review submission")
		return
	}
	response.Success(c, sub)
}

func writeSubmissionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrSubmissionInvalid):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, fallback)
	}
}
