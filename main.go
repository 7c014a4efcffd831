package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"semillero-hub/config"
	"semillero-hub/models"
	"semillero-hub/services"
	"semillero-hub/storage"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	activitiesCreatedCounter prometheus.Counter
	usersFlaggedCounter      prometheus.Counter
)

func init() {
	activitiesCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activities_created_total",
			Help: "Total number of activities registered.",
		},
	)
	usersFlaggedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_marked_inactive_total",
			Help: "Total number of users flagged inactive by the sweep.",
		},
	)
	prometheus.MustRegister(activitiesCreatedCounter, usersFlaggedCounter)
}

func jwtAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims := token.Claims.(*jwt.RegisteredClaims)
		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}
		c.Set("user_id", uint(userID))
		c.Next()
	}
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint("user_id")
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	// Auto-Migration
	logging.Info("Running database auto-migration...")
	db.AutoMigrate(
		&models.User{}, &models.ResearchHotbed{}, &models.Membership{},
		&models.Activity{}, &models.Project{}, &models.Product{},
		&models.Recognition{}, &models.ActivityAuthor{},
	)

	// Setup Services
	aggregationService := services.NewAggregationService(db, logging)
	activityService := services.NewActivityService(db, logging)
	dashboardService := services.NewDashboardService(db, aggregationService, logging)
	sweepService := services.NewSweepService(db, logging, cfg.InactivityDays)

	var reportService *services.ReportService
	if cfg.ExportArchiveEnabled() {
		client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		reportService = services.NewReportService(cfg, db, aggregationService, client, logging)
		logging.Info("Export archiving enabled", zap.String("bucket", cfg.ExportS3Bucket))
	} else {
		reportService = services.NewReportService(cfg, db, aggregationService, nil, logging)
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Setup Routes
	setupAuthRoutes(router, db, cfg, logging)

	authorized := router.Group("/", jwtAuthMiddleware(cfg))
	setupUserRoutes(authorized, db, aggregationService, dashboardService, logging)
	setupResearchHotbedRoutes(authorized, db, aggregationService, logging)
	setupMembershipRoutes(authorized, db, logging)
	setupActivityRoutes(authorized, activityService, aggregationService, logging)
	setupSemesterRoutes(authorized)
	setupExportRoutes(authorized, reportService, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled inactivity sweep...")
		count, err := sweepService.MarkInactiveUsers(context.Background())
		if err != nil {
			logging.Error("Cron job failed", zap.Error(err))
		} else {
			logging.Info("Cron job completed", zap.Int64("flagged_users", count))
			usersFlaggedCounter.Add(float64(count))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupAuthRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	router.POST("/register", func(c *gin.Context) {
		type RegisterRequest struct {
			Name            string `json:"name" binding:"required"`
			Email           string `json:"email" binding:"required,email"`
			Password        string `json:"password" binding:"required,min=8"`
			InstitutionalID string `json:"institutional_id" binding:"required"`
			Type            string `json:"type" binding:"required"`
			AcademicProgram string `json:"academic_program"`
			TermsAccepted   bool   `json:"terms_accepted"`
			TermsVersion    string `json:"terms_version"`
		}

		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		var existing models.User
		err := db.Where("email = ? OR institutional_id = ?", req.Email, req.InstitutionalID).
			First(&existing).Error
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "user already registered"})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("DB error checking existing user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Password hash failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			return
		}

		user := models.User{
			Name:            req.Name,
			Email:           req.Email,
			Password:        string(hash),
			InstitutionalID: req.InstitutionalID,
			Type:            req.Type,
			AcademicProgram: req.AcademicProgram,
			Status:          models.UserStatusActive,
			TermsAccepted:   req.TermsAccepted,
			TermsVersion:    req.TermsVersion,
		}
		if req.TermsAccepted {
			user.TermsAcceptedAt = time.Now()
		}
		if err := db.Create(&user).Error; err != nil {
			log.Error("DB error creating user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			return
		}
		c.JSON(http.StatusCreated, user)
	})

	router.POST("/login", func(c *gin.Context) {
		type LoginRequest struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		var user models.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			log.Error("DB error on login", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		// A successful login reactivates accounts the sweep flagged.
		now := time.Now()
		user.LastLoginAt = &now
		user.Status = models.UserStatusActive
		if err := db.Model(&user).Updates(map[string]interface{}{
			"last_login_at": now,
			"status":        models.UserStatusActive,
		}).Error; err != nil {
			log.Error("DB error updating last login", zap.Uint("user_id", user.ID), zap.Error(err))
		}

		claims := jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.TokenTTLHours) * time.Hour)),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			log.Error("Token signing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": signed, "user": user})
	})
}

func setupUserRoutes(rg *gin.RouterGroup, db *gorm.DB, aggregation *services.AggregationService, dashboard *services.DashboardService, log *zap.Logger) {
	rg.GET("/users", func(c *gin.Context) {
		var users []models.User
		if err := db.Find(&users).Error; err != nil {
			log.Error("Database query for all users failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, users)
	})

	rg.GET("/users/me", func(c *gin.Context) {
		var user models.User
		if err := db.First(&user, currentUserID(c)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			log.Error("DB error loading user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, user)
	})

	rg.PUT("/users/me", func(c *gin.Context) {
		type UpdateRequest struct {
			Name            *string `json:"name"`
			AcademicProgram *string `json:"academic_program"`
			Password        *string `json:"password"`
		}

		var req UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		var user models.User
		if err := db.First(&user, currentUserID(c)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.AcademicProgram != nil {
			user.AcademicProgram = *req.AcademicProgram
		}
		if req.Password != nil {
			if len(*req.Password) < 8 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
				return
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
				return
			}
			user.Password = string(hash)
		}

		if err := db.Save(&user).Error; err != nil {
			log.Error("DB error updating user", zap.Uint("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
		c.JSON(http.StatusOK, user)
	})

	rg.GET("/users/me/activities", func(c *gin.Context) {
		semester := c.Query("semester")
		if semester != "" && !services.IsValidSemester(semester) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid semester"})
			return
		}
		views, err := aggregation.ActivitiesForUser(c.Request.Context(), currentUserID(c), semester)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, views)
	})

	rg.GET("/users/me/dashboard", func(c *gin.Context) {
		result, err := dashboard.ForUser(c.Request.Context(), currentUserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	rg.GET("/users/me/research-hotbeds", func(c *gin.Context) {
		type MembershipView struct {
			MembershipID     uint    `json:"membership_id"`
			ResearchHotbedID uint    `json:"research_hotbed_id"`
			Name             string  `json:"name"`
			Acronym          string  `json:"acronym,omitempty"`
			Role             string  `json:"role"`
			Status           string  `json:"status"`
			DateEnter        string  `json:"date_enter"`
			DateExit         *string `json:"date_exit,omitempty"`
		}

		var memberships []models.Membership
		if err := db.Where("user_id = ? AND status = ?", currentUserID(c), models.MembershipStatusActive).
			Find(&memberships).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		views := []MembershipView{}
		for _, m := range memberships {
			view := MembershipView{
				MembershipID:     m.ID,
				ResearchHotbedID: m.ResearchHotbedID,
				Role:             m.Role,
				Status:           m.Status,
				DateEnter:        m.DateEnter.Format("2006-01-02"),
			}
			if m.DateExit != nil {
				exit := m.DateExit.Format("2006-01-02")
				view.DateExit = &exit
			}
			var hotbed models.ResearchHotbed
			if err := db.First(&hotbed, m.ResearchHotbedID).Error; err == nil {
				view.Name = hotbed.Name
				view.Acronym = hotbed.Acronym
			}
			views = append(views, view)
		}
		c.JSON(http.StatusOK, views)
	})
}

func setupResearchHotbedRoutes(rg *gin.RouterGroup, db *gorm.DB, aggregation *services.AggregationService, log *zap.Logger) {
	rg.POST("/research-hotbeds", func(c *gin.Context) {
		type CreateRequest struct {
			Name             string `json:"name" binding:"required"`
			Acronym          string `json:"acronym"`
			UniversityBranch string `json:"university_branch"`
			Faculty          string `json:"faculty"`
		}

		var req CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		hotbed := models.ResearchHotbed{
			Name:             req.Name,
			Acronym:          req.Acronym,
			UniversityBranch: req.UniversityBranch,
			Faculty:          req.Faculty,
			Status:           models.HotbedStatusActive,
		}
		if err := db.Create(&hotbed).Error; err != nil {
			log.Error("DB error creating research hotbed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create research hotbed"})
			return
		}
		c.JSON(http.StatusCreated, hotbed)
	})

	rg.GET("/research-hotbeds", func(c *gin.Context) {
		query := db.Model(&models.ResearchHotbed{})
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		var hotbeds []models.ResearchHotbed
		if err := query.Order("name asc").Find(&hotbeds).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, hotbeds)
	})

	rg.PUT("/research-hotbeds/:id", func(c *gin.Context) {
		id := c.Param("id")

		var hotbed models.ResearchHotbed
		if err := db.First(&hotbed, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "research hotbed not found"})
				return
			}
			log.Error("DB error checking for hotbed on PUT", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		type UpdateRequest struct {
			Name              *string `json:"name"`
			Acronym           *string `json:"acronym"`
			UniversityBranch  *string `json:"university_branch"`
			Faculty           *string `json:"faculty"`
			Status            *string `json:"status"`
			DeleteDescription *string `json:"delete_description"`
		}

		var req UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if req.Name != nil {
			hotbed.Name = *req.Name
		}
		if req.Acronym != nil {
			hotbed.Acronym = *req.Acronym
		}
		if req.UniversityBranch != nil {
			hotbed.UniversityBranch = *req.UniversityBranch
		}
		if req.Faculty != nil {
			hotbed.Faculty = *req.Faculty
		}
		if req.Status != nil {
			hotbed.Status = *req.Status
		}
		if req.DeleteDescription != nil {
			hotbed.DeleteDescription = req.DeleteDescription
		}

		if err := db.Save(&hotbed).Error; err != nil {
			log.Error("DB error updating hotbed", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update research hotbed"})
			return
		}
		c.JSON(http.StatusOK, hotbed)
	})

	rg.GET("/research-hotbeds/:id/activities", func(c *gin.Context) {
		hotbedID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid research hotbed id"})
			return
		}
		semester := c.Query("semester")
		if semester != "" && !services.IsValidSemester(semester) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid semester"})
			return
		}
		views, err := aggregation.ActivitiesForHotbed(c.Request.Context(), uint(hotbedID), semester)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, views)
	})

	rg.GET("/research-hotbeds/:id/members", func(c *gin.Context) {
		type MemberView struct {
			MembershipID    uint    `json:"membership_id"`
			UserID          uint    `json:"user_id"`
			Name            string  `json:"name"`
			Email           string  `json:"email"`
			InstitutionalID string  `json:"institutional_id"`
			Role            string  `json:"role"`
			Status          string  `json:"status"`
			DateEnter       string  `json:"date_enter"`
			DateExit        *string `json:"date_exit,omitempty"`
			Observation     *string `json:"observation,omitempty"`
		}

		var memberships []models.Membership
		if err := db.Where("research_hotbed_id = ?", c.Param("id")).Find(&memberships).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		// Active members first, alphabetical within each status.
		views := []MemberView{}
		for _, m := range memberships {
			view := MemberView{
				MembershipID: m.ID,
				UserID:       m.UserID,
				Role:         m.Role,
				Status:       m.Status,
				DateEnter:    m.DateEnter.Format("2006-01-02"),
				Observation:  m.Observation,
			}
			if m.DateExit != nil {
				exit := m.DateExit.Format("2006-01-02")
				view.DateExit = &exit
			}
			var user models.User
			if err := db.First(&user, m.UserID).Error; err == nil {
				view.Name = user.Name
				view.Email = user.Email
				view.InstitutionalID = user.InstitutionalID
			}
			views = append(views, view)
		}
		sort.Slice(views, func(i, j int) bool {
			if views[i].Status != views[j].Status {
				return views[i].Status == models.MembershipStatusActive
			}
			return views[i].Name < views[j].Name
		})
		c.JSON(http.StatusOK, views)
	})
}

func setupMembershipRoutes(rg *gin.RouterGroup, db *gorm.DB, log *zap.Logger) {
	rg.POST("/research-hotbeds/:id/members/:userID", func(c *gin.Context) {
		hotbedID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid research hotbed id"})
			return
		}
		userID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		type JoinRequest struct {
			Role        string  `json:"role" binding:"required"`
			Observation *string `json:"observation"`
		}
		var req JoinRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := db.First(&models.User{}, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if err := db.First(&models.ResearchHotbed{}, hotbedID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "research hotbed not found"})
			return
		}

		var existing models.Membership
		err = db.Where("user_id = ? AND research_hotbed_id = ?", userID, hotbedID).
			First(&existing).Error
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "user is already a member of this research hotbed"})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		membership := models.Membership{
			UserID:           uint(userID),
			ResearchHotbedID: uint(hotbedID),
			Role:             req.Role,
			Status:           models.MembershipStatusActive,
			Observation:      req.Observation,
			DateEnter:        time.Now(),
		}
		if err := db.Create(&membership).Error; err != nil {
			log.Error("DB error creating membership", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create membership"})
			return
		}
		c.JSON(http.StatusCreated, membership)
	})

	rg.PUT("/memberships/:id", func(c *gin.Context) {
		var membership models.Membership
		if err := db.First(&membership, c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "membership not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		type UpdateRequest struct {
			Role        *string `json:"role"`
			Status      *string `json:"status"`
			Observation *string `json:"observation"`
			DateExit    *string `json:"date_exit"`
		}
		var req UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if req.Role != nil {
			membership.Role = *req.Role
		}
		if req.Status != nil {
			membership.Status = *req.Status
		}
		if req.Observation != nil {
			membership.Observation = req.Observation
		}
		if req.DateExit != nil {
			exit, err := time.Parse("2006-01-02", *req.DateExit)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date_exit must be YYYY-MM-DD"})
				return
			}
			membership.DateExit = &exit
		}

		if err := db.Save(&membership).Error; err != nil {
			log.Error("DB error updating membership", zap.Uint("membership_id", membership.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update membership"})
			return
		}
		c.JSON(http.StatusOK, membership)
	})

	// Memberships are deactivated, never hard-deleted: activities keep
	// anchoring to the membership row for historical reports.
	rg.DELETE("/memberships/:id", func(c *gin.Context) {
		var membership models.Membership
		if err := db.First(&membership, c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "membership not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		now := time.Now()
		membership.Status = models.MembershipStatusInactive
		membership.DateExit = &now
		if err := db.Save(&membership).Error; err != nil {
			log.Error("DB error deactivating membership", zap.Uint("membership_id", membership.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove membership"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "membership removed"})
	})
}

func setupActivityRoutes(rg *gin.RouterGroup, activities *services.ActivityService, aggregation *services.AggregationService, log *zap.Logger) {
	rg.POST("/activities", func(c *gin.Context) {
		var input services.CreateActivityInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		id, err := activities.Create(c.Request.Context(), input)
		if err != nil {
			if errors.Is(err, services.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create activity"})
			return
		}
		activitiesCreatedCounter.Inc()

		view, err := aggregation.ActivityDetail(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusCreated, gin.H{"activity_id": id})
			return
		}
		c.JSON(http.StatusCreated, view)
	})

	rg.GET("/activities/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
			return
		}
		view, err := aggregation.ActivityDetail(c.Request.Context(), uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "activity not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	rg.PUT("/activities/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
			return
		}

		var input services.UpdateActivityInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := activities.Update(c.Request.Context(), uint(id), input); err != nil {
			switch {
			case errors.Is(err, services.ErrValidation):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "activity not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update activity"})
			}
			return
		}

		view, err := aggregation.ActivityDetail(c.Request.Context(), uint(id))
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"activity_id": id})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	rg.DELETE("/activities/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
			return
		}
		if err := activities.Delete(c.Request.Context(), uint(id)); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "activity not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete activity"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "activity deleted"})
	})
}

func setupSemesterRoutes(rg *gin.RouterGroup) {
	rg.GET("/semesters", func(c *gin.Context) {
		type SemesterView struct {
			Value string `json:"value"`
			Label string `json:"label"`
		}
		semesters := services.DefaultSemesters()
		views := make([]SemesterView, 0, len(semesters))
		for _, s := range semesters {
			views = append(views, SemesterView{Value: s, Label: services.SemesterLabel(s)})
		}
		c.JSON(http.StatusOK, views)
	})

	rg.GET("/semesters/current", func(c *gin.Context) {
		current := services.CurrentSemester()
		c.JSON(http.StatusOK, gin.H{
			"value": current,
			"label": services.DetailedSemesterLabel(current),
		})
	})
}

func setupExportRoutes(rg *gin.RouterGroup, reports *services.ReportService, log *zap.Logger) {
	rg.GET("/export/research-hotbeds/:id/csv", func(c *gin.Context) {
		hotbedID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid research hotbed id"})
			return
		}

		report, err := reports.HotbedReport(c.Request.Context(), uint(hotbedID), c.Query("semester"))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrValidation):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "research hotbed not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
			}
			return
		}

		data, err := services.RenderCSV(report.Activities, false)
		if err != nil {
			log.Error("CSV render failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
			return
		}

		filename := fmt.Sprintf("research-hotbed-%d-%s.csv", hotbedID, time.Now().Format("20060102-150405"))
		if _, err := reports.Archive(c.Request.Context(), "research-hotbeds", report.Semester, filename, data); err != nil {
			log.Warn("Report archive skipped", zap.Error(err))
		}

		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "text/csv", data)
	})

	rg.GET("/export/users/me/csv", func(c *gin.Context) {
		report, err := reports.UserReport(c.Request.Context(), currentUserID(c), c.Query("semester"))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrValidation):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
			}
			return
		}

		data, err := services.RenderCSV(report.Activities, true)
		if err != nil {
			log.Error("CSV render failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
			return
		}

		filename := fmt.Sprintf("user-%d-%s.csv", report.UserID, time.Now().Format("20060102-150405"))
		if _, err := reports.Archive(c.Request.Context(), "users", report.Semester, filename, data); err != nil {
			log.Warn("Report archive skipped", zap.Error(err))
		}

		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "text/csv", data)
	})
}
