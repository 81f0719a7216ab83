package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nemoguigrat/uralintern/internal/middleware"
	"github.com/nemoguigrat/uralintern/internal/services"

	"github.com/gin-gonic/gin"
)

type GradeHandler struct {
	gradeService  *services.GradeService
	ratingService *services.RatingService
}

func NewGradeHandler(gradeService *services.GradeService, ratingService *services.RatingService) *GradeHandler {
	return &GradeHandler{gradeService: gradeService, ratingService: ratingService}
}

// OptionalScore tells an absent competence key apart from an explicit null.
type OptionalScore struct {
	Set   bool
	Value *int
}

func (s *OptionalScore) UnmarshalJSON(data []byte) error {
	s.Set = true
	if string(data) == "null" {
		s.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Value = &v
	return nil
}

// GradeRequest is a grade submission. Any rater field in the body is
// ignored; the rater is the authenticated user.
type GradeRequest struct {
	Trainee     uint          `json:"trainee" example:"12"`
	Stage       uint          `json:"stage" example:"3"`
	Competence1 OptionalScore `json:"competence1" swaggertype:"integer" example:"2"`
	Competence2 OptionalScore `json:"competence2" swaggertype:"integer" example:"1"`
	Competence3 OptionalScore `json:"competence3" swaggertype:"integer" example:"0"`
	Competence4 OptionalScore `json:"competence4" swaggertype:"integer" example:"-1"`
}

func (r GradeRequest) input() services.GradeInput {
	scores := services.Scores{}
	for k, s := range []OptionalScore{r.Competence1, r.Competence2, r.Competence3, r.Competence4} {
		if s.Set {
			scores[k+1] = s.Value
		}
	}
	return services.GradeInput{TraineeID: r.Trainee, StageID: r.Stage, Scores: scores}
}

type BatchGradeRequest struct {
	Grades []GradeRequest `json:"grades" binding:"required"`
}

type BatchItemResponse struct {
	Index int            `json:"index"`
	Grade *Grade         `json:"grade,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// Descriptions godoc
// @Summary      Grade scale descriptions
// @Tags         grades
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Router       /api/v1/grade/description [get]
func (h *GradeHandler) Descriptions(c *gin.Context) {
	descriptions, err := h.gradeService.Descriptions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"descriptions": descriptions})
}

// Received godoc
// @Summary      Grades received by the trainee
// @Tags         grades
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/grade/get/to [get]
func (h *GradeHandler) Received(c *gin.Context) {
	grades, err := h.gradeService.GradesReceived(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grades": grades})
}

// Given godoc
// @Summary      Grades submitted by the trainee
// @Tags         grades
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/grade/get/from [get]
func (h *GradeHandler) Given(c *gin.Context) {
	grades, err := h.gradeService.GradesGiven(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grades": grades})
}

// CreateUpdate godoc
// @Summary      Create or update a grade
// @Description  Upserts the caller's grade for a trainee on an active stage. Competences missing from the body keep their stored value.
// @Tags         grades
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body GradeRequest true "Grade"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/grade/create-update [post]
func (h *GradeHandler) CreateUpdate(c *gin.Context) {
	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	grade, err := h.gradeService.UpsertGrade(c.Request.Context(), middleware.Identity(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grade": grade})
}

// CreateUpdateBatch godoc
// @Summary      Create or update several grades
// @Description  Each item is applied on its own; the response reports the outcome per item.
// @Tags         grades
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BatchGradeRequest true "Grades"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/grade/create-update/batch [post]
func (h *GradeHandler) CreateUpdateBatch(c *gin.Context) {
	var req BatchGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inputs := make([]services.GradeInput, len(req.Grades))
	for i, g := range req.Grades {
		inputs[i] = g.input()
	}

	results := h.gradeService.UpsertGrades(c.Request.Context(), middleware.Identity(c), inputs)
	items := make([]BatchItemResponse, len(results))
	for i, r := range results {
		items[i] = BatchItemResponse{Index: r.Index, Grade: r.Grade}
		if r.Err != nil {
			_, body := errorBody(r.Err)
			items[i].Error = &body
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

// Report godoc
// @Summary      Rating report of the trainee
// @Description  Mean competence scores split into general, self, team and expert ratings
// @Tags         grades
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/grade/get/report [get]
func (h *GradeHandler) Report(c *gin.Context) {
	report, err := h.ratingService.Report(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": report})
}
