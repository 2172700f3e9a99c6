package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kimshubb/jps-erp-api/internal/middleware"
	"github.com/Kimshubb/jps-erp-api/internal/service"
	appErrors "github.com/Kimshubb/jps-erp-api/pkg/errors"
	"github.com/Kimshubb/jps-erp-api/pkg/response"
)

// GradeHandler exposes grade and stream endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// @Summary List grades with streams and student counts
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	grades, err := h.grades.List(c.Request.Context(), middleware.TenantScope(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Create godoc
// @Summary Create a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.CreateGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var req service.CreateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	grade, err := h.grades.Create(c.Request.Context(), middleware.TenantScope(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// AddStream godoc
// @Summary Add a stream to a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.CreateStreamRequest true "Stream payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades/streams [post]
func (h *GradeHandler) AddStream(c *gin.Context) {
	var req service.CreateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid stream payload"))
		return
	}

	stream, err := h.grades.AddStream(c.Request.Context(), middleware.TenantScope(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stream)
}
