package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nemoguigrat/uralintern/internal/models"
	"github.com/nemoguigrat/uralintern/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the administrative console.
type AdminHandler struct {
	userService   *services.UserService
	rosterService *services.RosterService
	gradeService  *services.GradeService
	importService *services.ImportService
	exportService *services.ExportService
}

func NewAdminHandler(
	userService *services.UserService,
	rosterService *services.RosterService,
	gradeService *services.GradeService,
	importService *services.ImportService,
	exportService *services.ExportService,
) *AdminHandler {
	return &AdminHandler{
		userService:   userService,
		rosterService: rosterService,
		gradeService:  gradeService,
		importService: importService,
		exportService: exportService,
	}
}

type CreateUserRequest struct {
	Username         string `json:"username" binding:"required" example:"Иванов Иван Иванович"`
	Email            string `json:"email" binding:"required" example:"ivanov@example.com"`
	Password         string `json:"password" example:"password123"`
	SystemRole       string `json:"system_role" example:"TRAINEE"`
	SocialURL        string `json:"social_url"`
	IsRandomPassword bool   `json:"is_random_password"`
}

// AdminUserView exposes the plain password for credential distribution.
type AdminUserView struct {
	models.User
	UnhashedPassword string `json:"unhashed_password"`
}

type SendCredentialsRequest struct {
	Users []uint `json:"users" binding:"required" example:"1,2"`
}

type CreateEventRequest struct {
	EventName string `json:"event_name" binding:"required" example:"Весенняя стажировка"`
	Date      string `json:"date" example:"2024-03-01"`
	IsActive  bool   `json:"is_active"`
}

type CreateStageRequest struct {
	StageName string `json:"stage_name" binding:"required" example:"Защита проекта"`
	Event     uint   `json:"event" binding:"required" example:"1"`
	Date      string `json:"date" example:"2024-03-15"`
	IsActive  bool   `json:"is_active"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type CreateTeamRequest struct {
	TeamName string `json:"team_name" binding:"required" example:"Команда 1"`
	Curator  *uint  `json:"curator"`
}

type SetCuratorRequest struct {
	Curator *uint `json:"curator"`
}

type AssignTeamRequest struct {
	Team *uint `json:"team"`
}

type CreateDescriptionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateUser godoc
// @Summary      Create a user
// @Description  Creates the user and its trainee, curator or expert profile
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateUserRequest true "User"
// @Success      201 {object} AdminUserView
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/admin/users [post]
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.IsRandomPassword && len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "password must be at least 8 characters", Field: "password"})
		return
	}
	if req.IsRandomPassword {
		req.Password = ""
	}

	user, err := h.userService.CreateUserWithProfile(c.Request.Context(), services.UserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.SystemRole,
		SocialURL: req.SocialURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AdminUserView{User: *user, UnhashedPassword: user.UnhashedPassword})
}

// ListUsers godoc
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        role query string false "TRAINEE, CURATOR, EXPERT or ADMIN"
// @Success      200 {array} AdminUserView
// @Router       /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]AdminUserView, len(users))
	for i, u := range users {
		views[i] = AdminUserView{User: u, UnhashedPassword: u.UnhashedPassword}
	}
	c.JSON(http.StatusOK, views)
}

// DeleteUser godoc
// @Summary      Delete a user with its profile
// @Tags         admin
// @Security     BearerAuth
// @Param        id path int true "User ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.DeleteUserAndProfile(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}

// SendCredentials godoc
// @Summary      Mail login credentials
// @Description  Emails each selected user its login email and password
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SendCredentialsRequest true "User IDs"
// @Success      200 {object} services.CredentialsResult
// @Failure      400 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /api/v1/admin/users/send-credentials [post]
func (h *AdminHandler) SendCredentials(c *gin.Context) {
	var req SendCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.userService.SendCredentials(c.Request.Context(), req.Users)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) DeleteTrainee(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.DeleteTrainee(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "trainee deleted"})
}

func (h *AdminHandler) AssignTeam(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req AssignTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.rosterService.AssignTrainee(c.Request.Context(), id, req.Team); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "trainee moved"})
}

// ImportTrainees godoc
// @Summary      Import trainees from CSV
// @Description  Columns are matched by header; the delimiter may be ',' or ';'
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        csv_file formData file true "CSV file in UTF-8"
// @Success      200 {object} services.ImportResult
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/admin/trainees/import [post]
func (h *AdminHandler) ImportTrainees(c *gin.Context) {
	file, err := c.FormFile("csv_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file required", Field: "csv_file"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot read file", Field: "csv_file"})
		return
	}
	defer f.Close()

	result, err := h.importService.ImportTrainees(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportGrades godoc
// @Summary      Export all grades
// @Tags         admin
// @Produce      text/csv
// @Security     BearerAuth
// @Param        format query string false "csv (default) or xlsx"
// @Success      200 {file} file
// @Router       /api/v1/admin/grades/export [get]
func (h *AdminHandler) ExportGrades(c *gin.Context) {
	stamp := time.Now().Format("20060102_150405")
	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"grades_%s.xlsx\"", stamp))
		if err := h.exportService.WriteXLSX(c.Request.Context(), c.Writer); err != nil {
			respondError(c, err)
		}
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"grades_%s.csv\"", stamp))
		if err := h.exportService.WriteCSV(c.Request.Context(), c.Writer); err != nil {
			respondError(c, err)
		}
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "format must be csv or xlsx", Field: "format"})
	}
}

func (h *AdminHandler) ListEvents(c *gin.Context) {
	events, err := h.rosterService.ListEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// CreateEvent godoc
// @Summary      Create an event
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateEventRequest true "Event"
// @Success      201 {object} models.Event
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/admin/events [post]
func (h *AdminHandler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	event, err := h.rosterService.CreateEvent(c.Request.Context(), req.EventName, date, req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// SetEventActive godoc
// @Summary      Open or close an event
// @Description  Closing an event closes all of its stages
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Event ID"
// @Param        request body SetActiveRequest true "State"
// @Success      200 {object} models.Event
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/admin/events/{id}/active [put]
func (h *AdminHandler) SetEventActive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	event, err := h.rosterService.SetEventActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *AdminHandler) ListStages(c *gin.Context) {
	stages, err := h.rosterService.ListStages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

// CreateStage godoc
// @Summary      Create a stage
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateStageRequest true "Stage"
// @Success      201 {object} Stage
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/admin/stages [post]
func (h *AdminHandler) CreateStage(c *gin.Context) {
	var req CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	stage, err := h.rosterService.CreateStage(c.Request.Context(), services.StageInput{
		Name:     req.StageName,
		EventID:  req.Event,
		Date:     date,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}

// SetStageActive godoc
// @Summary      Open or close a stage
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Stage ID"
// @Param        request body SetActiveRequest true "State"
// @Success      200 {object} Stage
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/admin/stages/{id}/active [put]
func (h *AdminHandler) SetStageActive(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	stage, err := h.rosterService.SetStageActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (h *AdminHandler) ListTeams(c *gin.Context) {
	teams, err := h.rosterService.ListTeams(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

func (h *AdminHandler) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	team, err := h.rosterService.CreateTeam(c.Request.Context(), req.TeamName, req.Curator)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *AdminHandler) SetTeamCurator(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SetCuratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	team, err := h.rosterService.SetTeamCurator(c.Request.Context(), id, req.Curator)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *AdminHandler) CreateDescription(c *gin.Context) {
	var req CreateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.gradeService.CreateDescription(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}
