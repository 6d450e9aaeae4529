package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"smartbin/portal/internal/model"
	"smartbin/portal/internal/service"
	"smartbin/portal/pkg/response"
)

type BinHandler struct {
	binService service.BinService
}

func NewBinHandler(binService service.BinService) *BinHandler {
	return &BinHandler{binService: binService}
}

type CreateBinRequest struct {
	Code           string          `json:"code" binding:"required"`
	Location       string          `json:"location" binding:"required"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	CapacityLiters int             `json:"capacity_liters"`
	Status         model.BinStatus `json:"status"`
	WasteType      model.WasteType `json:"waste_type"`
	OwnerID        *uuid.UUID      `json:"owner_id"`
}

type UpdateBinRequest struct {
	Location       *string          `json:"location"`
	Latitude       *float64         `json:"latitude"`
	Longitude      *float64         `json:"longitude"`
	CapacityLiters *int             `json:"capacity_liters"`
	Status         *model.BinStatus `json:"status"`
	WasteType      *model.WasteType `json:"waste_type"`
	OwnerID        *uuid.UUID       `json:"owner_id"`
	ClearOwner     bool             `json:"clear_owner"`
}

type FillRequest struct {
	Level *int `json:"level" binding:"required"`
}

func (h *BinHandler) List(c *gin.Context) {
	viewer, err := viewerFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	p := parsePagination(c)

	bins, total, err := h.binService.List(c.Request.Context(), viewer, model.BinStatus(c.Query("status")), p)
	if err != nil {
		writeBinError(c, err, "failed to list bins")
		return
	}
	response.Paged(c, bins, total, p.Page, p.PageSize)
}

func (h *BinHandler) Get(c *gin.Context) {
	viewer, err := viewerFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	bin, err := h.binService.Get(c.Request.Context(), viewer, id)
	if err != nil {
		writeBinError(c, err, "failed to load bin")
		return
	}
	response.Success(c, bin)
}

func (h *BinHandler) Create(c *gin.Context) {
	var req CreateBinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	bin, err := h.binService.Create(c.Request.Context(), service.BinInput{
		Code:           req.Code,
		Location:       req.Location,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		CapacityLiters: req.CapacityLiters,
		Status:         req.Status,
		WasteType:      req.WasteType,
		OwnerID:        req.OwnerID,
	})
	if err != nil {
		writeBinError(c, err, "failed to create bin")
		return
	}
	response.Created(c, bin)
}

func (h *BinHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateBinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	bin, err := h.binService.Update(c.Request.Context(), id, service.BinUpdate{
		Location:       req.Location,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		CapacityLiters: req.CapacityLiters,
		Status:         req.Status,
		WasteType:      req.WasteType,
		OwnerID:        req.OwnerID,
		ClearOwner:     req.ClearOwner,
	})
	if err != nil {
		writeBinError(c, err, "failed to update bin")
		return
	}
	response.Success(c, bin)
}

func (h *BinHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.binService.Delete(c.Request.Context(), id); err != nil {
		writeBinError(c, err, "failed to delete bin")
		return
	}
	response.Success(c, nil)
}

func (h *BinHandler) ReportFill(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req FillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	bin, err := h.binService.ReportFill(c.Request.Context(), id, *req.Level)
	if err != nil {
		writeBinError(c, err, "failed to record fill level")
		return
	}
	response.Success(c, bin)
}

func (h *BinHandler) Empty(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	bin, err := h.binService.Empty(c.Request.Context(), id)
	if err != nil {
		writeBinError(c, err, "failed to empty bin")
		return
	}
	response.Success(c, bin)
}

func writeBinError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrBinNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrBinExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrBinInvalid):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, fallback)
	}
}
