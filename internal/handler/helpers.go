package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"smartbin/portal/internal/handler/middleware"
	"smartbin/portal/internal/service"
	jwtpkg "smartbin/portal/pkg/jwt"
	"smartbin/portal/pkg/response"
)

var ErrNoClaims = errors.New("claims not found in context")

func getClaims(c *gin.Context) (*jwtpkg.Claims, error) {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

func getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	claims, err := getClaims(c)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID()
}

func viewerFromContext(c *gin.Context) (service.Viewer, error) {
	claims, err := getClaims(c)
	if err != nil {
		return service.Viewer{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return service.Viewer{}, err
	}
	return service.Viewer{UserID: id, Role: claims.Role}, nil
}

// parsePagination reads ?page= and ?page_size=. Bad values fall back to the
// defaults applied by service.Pagination.
func parsePagination(c *gin.Context) service.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return service.Pagination{Page: page, PageSize: size}.Normalize()
}

// parseIDParam parses a UUID path parameter, answering 400 when malformed.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
