package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nemoguigrat/uralintern/internal/middleware"
	"github.com/nemoguigrat/uralintern/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImageSize = 10 << 20

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

type TraineeHandler struct {
	traineeService *services.TraineeService
	uploadDir      string
}

func NewTraineeHandler(traineeService *services.TraineeService, uploadDir string) *TraineeHandler {
	return &TraineeHandler{traineeService: traineeService, uploadDir: uploadDir}
}

// GetTrainee godoc
// @Summary      Trainee profile of the caller
// @Tags         trainee
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/trainee [get]
func (h *TraineeHandler) GetTrainee(c *gin.Context) {
	trainee, err := h.traineeService.Profile(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trainee": trainee})
}

// UploadImage godoc
// @Summary      Upload the trainee's photo
// @Tags         trainee
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        image formData file true "png, jpg or jpeg"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/trainee/image [patch]
func (h *TraineeHandler) UploadImage(c *gin.Context) {
	identity := middleware.Identity(c)
	if !identity.IsTrainee() {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "user is not a trainee"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no image provided", Field: "image"})
		return
	}
	if file.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file too large (max 10MB)", Field: "image"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExts[ext] {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported file format", Field: "image"})
		return
	}

	filename := uuid.New().String() + ext
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		respondError(c, err)
		return
	}
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, filename)); err != nil {
		respondError(c, err)
		return
	}

	trainee, err := h.traineeService.SetImage(c.Request.Context(), identity, "/uploads/"+filename)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": trainee.Image})
}

// TeamMates godoc
// @Summary      The caller's team
// @Tags         trainee
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} services.TeamView
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/team [get]
func (h *TraineeHandler) TeamMates(c *gin.Context) {
	view, err := h.traineeService.TeamMates(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Teams godoc
// @Summary      Trainees grouped by team
// @Description  Curators see the teams they curate; experts and admins see all teams
// @Tags         trainee
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} ErrorResponse
// @Router       /api/v1/teams [get]
func (h *TraineeHandler) Teams(c *gin.Context) {
	teams, err := h.traineeService.TeamsFor(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}
