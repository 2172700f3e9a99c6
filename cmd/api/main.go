package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Kimshubb/jps-erp-api/api/swagger"
	"github.com/Kimshubb/jps-erp-api/internal/handler"
	"github.com/Kimshubb/jps-erp-api/internal/middleware"
	"github.com/Kimshubb/jps-erp-api/internal/models"
	"github.com/Kimshubb/jps-erp-api/internal/repository"
	"github.com/Kimshubb/jps-erp-api/internal/service"
	"github.com/Kimshubb/jps-erp-api/pkg/cache"
	"github.com/Kimshubb/jps-erp-api/pkg/config"
	"github.com/Kimshubb/jps-erp-api/pkg/database"
	"github.com/Kimshubb/jps-erp-api/pkg/logger"
	corsmiddleware "github.com/Kimshubb/jps-erp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/Kimshubb/jps-erp-api/pkg/middleware/requestid"
)

// @title JPS ERP API
// @version 1.0.0
// @description School fee and administration management backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Reports fall back to direct queries when redis is unreachable.
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled)
	} else {
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Reports.CacheTTL, logr, false)
	}

	users := repository.NewUserRepository(db)
	terms := repository.NewTermRepository(db)
	grades := repository.NewGradeRepository(db)
	subjects := repository.NewSubjectRepository(db)
	students := repository.NewStudentRepository(db)
	structures := repository.NewFeeStructureRepository(db)
	additional := repository.NewAdditionalFeeRepository(db)
	payments := repository.NewPaymentRepository(db)
	reports := repository.NewReportRepository(db)

	authSvc := service.NewAuthService(users, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "jps-erp-api",
	})
	termSvc := service.NewTermService(terms, users, nil, logr)
	gradeSvc := service.NewGradeService(grades, nil, logr)
	subjectSvc := service.NewSubjectService(subjects, users, nil, logr)
	studentSvc := service.NewStudentService(students, terms, nil, logr)
	structureSvc := service.NewFeeStructureService(structures, grades, nil, logr)
	additionalSvc := service.NewAdditionalFeeService(additional, students, nil, logr)
	balanceSvc := service.NewBalanceService(students, terms, structures, additional, payments, logr)
	paymentSvc := service.NewPaymentService(payments, students, terms, structures, additional, users, cacheSvc, metrics, nil, logr)
	reportSvc := service.NewFeeReportService(reports, terms, payments, cacheSvc, cfg.Reports.CacheTTL, logr)
	statementSvc := service.NewStatementService(balanceSvc, students, terms, grades, payments, cfg.Statements.SchoolFooter, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	termHandler := handler.NewTermHandler(termSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, balanceSvc)
	structureHandler := handler.NewFeeStructureHandler(structureSvc)
	additionalHandler := handler.NewAdditionalFeeHandler(additionalSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	statementHandler := handler.NewStatementHandler(statementSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)

	staff := authed.Group("")
	staff.Use(middleware.RBAC(models.RoleAdmin, models.RoleBursar, models.RoleTeacher))
	staff.GET("/terms", termHandler.List)
	staff.GET("/terms/current", termHandler.GetCurrent)
	staff.GET("/terms/:id", termHandler.Get)
	staff.GET("/grades", gradeHandler.List)
	staff.GET("/subjects", subjectHandler.List)
	staff.GET("/subjects/teachers", subjectHandler.Teachers)
	staff.GET("/subjects/teachers/:teacherId/assignments", subjectHandler.Assignments)
	staff.GET("/students", studentHandler.List)
	staff.GET("/students/:id", studentHandler.Get)

	billing := authed.Group("")
	billing.Use(middleware.RBAC(models.RoleAdmin, models.RoleBursar))
	billing.GET("/students/:id/balance", studentHandler.Balance)
	billing.GET("/students/:id/payments", paymentHandler.ListForStudent)
	billing.GET("/students/:id/statement", statementHandler.Get)
	billing.GET("/students/:id/statement/pdf", statementHandler.DownloadPDF)
	billing.GET("/students/:id/statement/csv", statementHandler.DownloadCSV)
	billing.GET("/students/:id/additional-fees", additionalHandler.ListForStudent)
	billing.POST("/payments", paymentHandler.Create)
	billing.GET("/fee-structures", structureHandler.Get)
	billing.GET("/fee-structures/term/:termId", structureHandler.ListByTerm)
	billing.GET("/additional-fees", additionalHandler.List)
	billing.GET("/reports/fees", reportHandler.FeeReport)

	admin := authed.Group("")
	admin.Use(middleware.RBAC(models.RoleAdmin))
	admin.POST("/terms", termHandler.Create)
	admin.PATCH("/terms/:id", termHandler.Update)
	admin.POST("/terms/:id/migrate", termHandler.Migrate)
	admin.POST("/grades", gradeHandler.Create)
	admin.POST("/grades/streams", gradeHandler.AddStream)
	admin.POST("/subjects", subjectHandler.Create)
	admin.POST("/subjects/assignments", subjectHandler.Assign)
	admin.POST("/students", studentHandler.Create)
	admin.PATCH("/students/:id", studentHandler.Update)
	admin.DELETE("/students/:id", studentHandler.Deactivate)
	admin.PUT("/fee-structures", structureHandler.Upsert)
	admin.POST("/additional-fees", additionalHandler.Create)
	admin.POST("/students/:id/additional-fees/:feeId", additionalHandler.Assign)
	admin.DELETE("/students/:id/additional-fees/:feeId", additionalHandler.Unassign)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
