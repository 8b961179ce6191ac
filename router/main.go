package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/database"
	"github.com/nileshk-dev/gurukul/handlers"
	account_handlers "github.com/nileshk-dev/gurukul/handlers/account"
	assignment_handlers "github.com/nileshk-dev/gurukul/handlers/assignment"
	attendance_handlers "github.com/nileshk-dev/gurukul/handlers/attendance"
	audit_handlers "github.com/nileshk-dev/gurukul/handlers/audit"
	auth_handlers "github.com/nileshk-dev/gurukul/handlers/auth"
	catalog_handlers "github.com/nileshk-dev/gurukul/handlers/catalog"
	marks_handlers "github.com/nileshk-dev/gurukul/handlers/marks"
	notification_handlers "github.com/nileshk-dev/gurukul/handlers/notification"
	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/services/spaces"
	"github.com/nileshk-dev/gurukul/utils/auth"
	"github.com/nileshk-dev/gurukul/utils/cache"
	"github.com/nileshk-dev/gurukul/utils/middleware"
)

// SetupRoutes wires services, middleware and handlers onto the Fiber app.
func SetupRoutes(app *fiber.App, store database.Storage) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "gurukul-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	})

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis backs brute force protection on the login portals. Without Redis
	// logins still work, just unprotected.
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection will be disabled.", err)
	}
	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	// File storage for assignment submissions. Optional in development.
	var storageClient *spaces.Client
	if cfg, err := spaces.ConfigFromEnv(); err != nil {
		log.Printf("Warning: Spaces not configured: %v. File uploads will be disabled.", err)
	} else {
		storageClient, err = spaces.NewClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to create Spaces client: %v. File uploads will be disabled.", err)
		}
	}

	// Services
	auditService := services.NewAuditService(db)
	roleService := services.NewRoleService(db, auditService)
	emailService := services.NewEmailService()
	notificationService := services.NewNotificationService(db, emailService)
	resultService := services.NewResultService(db, roleService, auditService, notificationService)
	attendanceService := services.NewAttendanceService(db, roleService, auditService)
	assignmentService := services.NewAssignmentService(db, roleService, auditService, notificationService)
	accountService := services.NewAccountService(db, roleService, auditService, notificationService, jwtManager)
	catalogService := services.NewCatalogService(db, roleService, auditService)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	healthHandler := handlers.NewHealthHandler(store)
	authHandler := auth_handlers.NewAuthHandler(db, accountService, bruteForceProtection)
	accountHandler := account_handlers.NewAccountHandler(accountService)
	catalogHandler := catalog_handlers.NewCatalogHandler(catalogService)
	marksHandler := marks_handlers.NewMarksHandler(resultService, roleService)
	attendanceHandler := attendance_handlers.NewAttendanceHandler(attendanceService, roleService)
	assignmentHandler := assignment_handlers.NewAssignmentHandler(assignmentService, roleService, storageClient)
	auditHandler := audit_handlers.NewAuditHandler(auditService, roleService)
	notificationHandler := notification_handlers.NewNotificationHandler(notificationService)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check (public)
	app.Get("/ping", healthHandler.Check)

	api := app.Group("/api/v1")

	// Auth: one login route per portal (admin, teacher, student)
	authGroup := api.Group("/auth")
	if bruteForceProtection != nil {
		authGroup.Post("/login/:portal", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login/:portal", authHandler.Login)
	}
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)
	authGroup.Get("/me", authMiddleware.Required(), authHandler.Me)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Everything below requires authentication. Capability checks live in the
	// services; the router only establishes identity.
	protected := api.Group("", authMiddleware.Required())

	// Account provisioning and directory (admin)
	accounts := protected.Group("/accounts")
	accounts.Post("/students", accountHandler.RegisterStudent)
	accounts.Get("/students", accountHandler.ListStudents)
	accounts.Put("/students/:id", accountHandler.UpdateStudent)
	accounts.Delete("/students/:id", accountHandler.DeleteStudent)
	accounts.Post("/teachers", accountHandler.RegisterTeacher)
	accounts.Get("/teachers", accountHandler.ListTeachers)
	accounts.Put("/teachers/:id", accountHandler.UpdateTeacher)
	accounts.Delete("/teachers/:id", accountHandler.DeleteTeacher)

	// Catalog: class groups and subjects (admin)
	classes := protected.Group("/class-groups")
	classes.Get("/", catalogHandler.ListClassGroups)
	classes.Post("/", catalogHandler.CreateClassGroup)
	classes.Delete("/:id", catalogHandler.DeleteClassGroup)

	subjects := protected.Group("/subjects")
	subjects.Get("/", catalogHandler.ListSubjects)
	subjects.Post("/", catalogHandler.CreateSubject)
	subjects.Delete("/:id", catalogHandler.DeleteSubject)
	subjects.Post("/:id/teachers", catalogHandler.AssignTeacher)
	subjects.Delete("/:id/teachers/:teacherId", catalogHandler.UnassignTeacher)

	// Student class assignment (admin)
	protected.Put("/students/:id/class-group", catalogHandler.AssignStudent)

	// Marks and results
	marks := protected.Group("/marks")
	marks.Post("/", marksHandler.UpsertMark)
	marks.Get("/students/:studentId/summary", marksHandler.Summary)

	results := protected.Group("/results")
	results.Post("/students/:studentId/recompute", marksHandler.Recompute)
	results.Get("/students/:studentId", marksHandler.Result)
	results.Put("/:id/publish", marksHandler.Publish)

	// Attendance ledger
	attendance := protected.Group("/attendance")
	attendance.Post("/", attendanceHandler.Mark)
	attendance.Post("/bulk", attendanceHandler.BulkMark)
	attendance.Get("/students/:studentId/summary", attendanceHandler.Summary)
	attendance.Get("/students/:studentId", attendanceHandler.History)

	// Assignments and grading
	assignments := protected.Group("/assignments")
	assignments.Post("/", assignmentHandler.Create)
	assignments.Put("/:id/status", assignmentHandler.Transition)
	assignments.Post("/:id/submissions", assignmentHandler.Submit)
	assignments.Get("/:id/submissions", assignmentHandler.Submissions)
	assignments.Get("/mine", assignmentHandler.ListMine)
	protected.Get("/subjects/:subjectId/assignments", assignmentHandler.ListForSubject)
	protected.Put("/submissions/:id/grade", assignmentHandler.Grade)

	// Audit log: admins see everything, others see their own entries
	protected.Get("/audit", auditHandler.Query)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", notificationHandler.List)
	notifications.Put("/:id/read", notificationHandler.MarkRead)
}
