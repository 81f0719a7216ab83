package main

import (
	"context"
	"log"

	"github.com/nemoguigrat/uralintern/internal/config"
	"github.com/nemoguigrat/uralintern/internal/database"
	"github.com/nemoguigrat/uralintern/internal/handlers"
	"github.com/nemoguigrat/uralintern/internal/mailer"
	"github.com/nemoguigrat/uralintern/internal/middleware"
	"github.com/nemoguigrat/uralintern/internal/models"
	"github.com/nemoguigrat/uralintern/internal/services"
	"github.com/nemoguigrat/uralintern/internal/ws"

	_ "github.com/nemoguigrat/uralintern/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// @title           Uralintern API
// @version         1.0
// @description     Internship management: trainees, teams, stages and competency grading
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	rdb := database.ConnectRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	userService := services.NewUserService(db, nil, nil)
	if err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}

	r := setupRouter(cfg, db, rdb)

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// newMailer returns nil when SMTP is not configured so that credential
// mailing reports the service as unavailable.
func newMailer(cfg *config.Config) services.Mailer {
	m, err := mailer.New(cfg)
	if err != nil {
		log.Printf("mail delivery disabled: %v", err)
		return nil
	}
	if m == nil {
		return nil
	}
	return m
}

func setupRouter(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	hub := ws.NewHub()
	reportCache := services.NewReportCache(rdb, cfg.ReportCacheTTL)

	authService := services.NewAuthService(db, cfg)
	userService := services.NewUserService(db, reportCache, newMailer(cfg))
	rosterService := services.NewRosterService(db, reportCache)
	traineeService := services.NewTraineeService(db)
	gradeService := services.NewGradeService(db, reportCache, hub)
	ratingService := services.NewRatingService(db, reportCache)
	importService := services.NewImportService(db)
	exportService := services.NewExportService(db)

	authHandler := handlers.NewAuthHandler(authService)
	traineeHandler := handlers.NewTraineeHandler(traineeService, cfg.UploadDir)
	stageHandler := handlers.NewStageHandler(rosterService)
	gradeHandler := handlers.NewGradeHandler(gradeService, ratingService)
	adminHandler := handlers.NewAdminHandler(userService, rosterService, gradeService, importService, exportService)
	wsHandler := handlers.NewWSHandler(hub, authService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Static("/uploads", cfg.UploadDir)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws/notifications", wsHandler.Notifications)

	api := r.Group("/api/v1")
	{
		api.POST("/users/login", authHandler.Login)

		authed := api.Group("")
		authed.Use(middleware.JWTAuth(authService))
		{
			authed.GET("/user", authHandler.CurrentUser)

			authed.GET("/trainee", traineeHandler.GetTrainee)
			authed.PATCH("/trainee/image", traineeHandler.UploadImage)
			authed.GET("/team", traineeHandler.TeamMates)
			authed.GET("/teams", traineeHandler.Teams)

			authed.GET("/stage", stageHandler.ListActive)
			authed.GET("/stages/:event_id", stageHandler.ListActive)

			grade := authed.Group("/grade")
			{
				grade.GET("/description", gradeHandler.Descriptions)
				grade.GET("/get/to", gradeHandler.Received)
				grade.GET("/get/from", gradeHandler.Given)
				grade.GET("/get/report", gradeHandler.Report)
				grade.POST("/create-update", gradeHandler.CreateUpdate)
				grade.POST("/create-update/batch", gradeHandler.CreateUpdateBatch)
			}
		}

		admin := api.Group("/admin")
		admin.Use(middleware.JWTAuth(authService), middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
			admin.POST("/users/send-credentials", adminHandler.SendCredentials)

			admin.DELETE("/trainees/:id", adminHandler.DeleteTrainee)
			admin.PUT("/trainees/:id/team", adminHandler.AssignTeam)
			admin.POST("/trainees/import", adminHandler.ImportTrainees)

			admin.GET("/events", adminHandler.ListEvents)
			admin.POST("/events", adminHandler.CreateEvent)
			admin.PUT("/events/:id/active", adminHandler.SetEventActive)

			admin.GET("/stages", adminHandler.ListStages)
			admin.POST("/stages", adminHandler.CreateStage)
			admin.PUT("/stages/:id/active", adminHandler.SetStageActive)

			admin.GET("/teams", adminHandler.ListTeams)
			admin.POST("/teams", adminHandler.CreateTeam)
			admin.PUT("/teams/:id/curator", adminHandler.SetTeamCurator)

			admin.POST("/grade-descriptions", adminHandler.CreateDescription)
			admin.GET("/grades/export", adminHandler.ExportGrades)
		}
	}

	return r
}
