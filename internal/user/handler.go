package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"userapi/internal/shared"
	"userapi/pkg/tracing"
)

type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email,max=100"`
}

type UpdateUserRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email,max=100"`
}

// Handler exposes the user operations over HTTP. Failures are attached to
// the gin context and resolved by the error finalizer; handlers never write
// error bodies themselves.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateUser(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.validationFailed(c, span, err)
		return
	}

	tracing.AddSpanEvent(span, "validation.succeeded", nil)

	user, err := h.service.CreateUser(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())

	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.validationFailed(c, span, err)
		return
	}

	tracing.AddSpanEvent(span, "validation.succeeded", nil)

	user, err := h.service.UpdateUser(c.Request.Context(), id, req.Name, req.Email)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetAllUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *Handler) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(shared.ValidationFailed("Invalid user id"))
		c.Abort()
		return 0, false
	}

	return id, true
}

func (h *Handler) validationFailed(c *gin.Context, span trace.Span, err error) {
	message := shared.ValidationMessage(err)

	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("app.validation.path", c.Request.URL.Path),
			attribute.String("app.validation.errors", message),
		)
	}

	c.Error(shared.ValidationFailed(message))
	c.Abort()
}
