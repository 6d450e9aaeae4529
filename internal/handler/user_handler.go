package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"smartbin/portal/internal/model"
	"smartbin/portal/internal/service"
	"smartbin/portal/pkg/response"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Name     *string           `json:"name"`
	Role     *string           `json:"role"`
	Status   *model.UserStatus `json:"status"`
	Password *string           `json:"password"`
}

func (h *UserHandler) List(c *gin.Context) {
	p := parsePagination(c)
	users, total, err := h.userService.List(c.Request.Context(), p)
	if err != nil {
		response.InternalError(c, "failed to list users")
		return
	}
	response.Paged(c, users, total, p.Page, p.PageSize)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.userService.Create(c.Request.Context(), service.CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeUserError(c, err, "failed to create user")
		return
	}
	response.Created(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, service.UpdateUserInput{
		Name:     req.Name,
		Role:     req.Role,
		Status:   req.Status,
		Password: req.Password,
	})
	if err != nil {
		writeUserError(c, err, "failed to update user")
		return
	}
	response.Success(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	actorID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), actorID, id); err != nil {
		writeUserError(c, err, "failed to delete user")
		return
	}
	response.Success(c, nil)
}

func writeUserError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrUserExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrUserInvalid), errors.Is(err, service.ErrCannotDeleteSelf):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, fallback)
	}
}
