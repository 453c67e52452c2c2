package routes

import (
	"log"
	"time"

	"xmllibrary/internal/adapters/http/handlers"
	"xmllibrary/internal/adapters/http/middleware"
	"xmllibrary/internal/adapters/persistence/repositories"
	"xmllibrary/internal/config"
	"xmllibrary/internal/core/services"
	"xmllibrary/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
)

// Setup configures all routes for the application and returns the
// scheduler for the caller to start and stop.
func Setup(app *fiber.App, cfg *config.Config, storage *config.Storage) *services.CronService {
	store := storage.Store

	// Initialize repositories
	bookRepo := repositories.NewBookRepository(store, storage.Validator)
	memberRepo := repositories.NewMemberRepository(store, storage.Validator)
	borrowingRepo := repositories.NewBorrowingRepository(store, storage.Validator)
	userRepo := repositories.NewUserRepository(store)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(store)

	// Initialize services
	eventHub := services.NewEventHub()
	bookService := services.NewBookService(bookRepo, store, storage.Engine, cfg.Library.TransformTimeout)
	memberService := services.NewMemberService(memberRepo, borrowingRepo, store)
	borrowingService := services.NewBorrowingService(bookRepo, memberRepo, borrowingRepo, store, eventHub, cfg.Library.LoanDays)
	reportService := services.NewReportService(bookRepo, memberRepo, borrowingRepo, storage.Engine, cfg.Library.TransformTimeout)
	xmlService := services.NewXMLService(storage.Validator, storage.Engine)
	soapService := services.NewSoapService(bookRepo, memberRepo, borrowingRepo, storage.Validator)
	authService := services.NewAuthService(userRepo, refreshTokenRepo, store, cfg)
	userService := services.NewUserService(userRepo, refreshTokenRepo, store)
	notifyService := services.NewNotificationService(cfg.Notify)
	if !notifyService.IsEnabled() {
		log.Println("⚠️ NOTIFY_WEBHOOK_URL not set, overdue notices disabled")
	}
	cronService := services.NewCronService(borrowingService, authService, notifyService, store.Cache(), cfg.Library.OverdueSweepCron)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, storage)
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	bookHandler := handlers.NewBookHandler(bookService, reportService)
	memberHandler := handlers.NewMemberHandler(memberService)
	borrowingHandler := handlers.NewBorrowingHandler(borrowingService)
	xmlHandler := handlers.NewXMLHandler(xmlService)
	soapHandler := handlers.NewSoapHandler(soapService)
	eventHandler := handlers.NewEventHandler(eventHub)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)
	apiV1.Post("/soap", soapHandler.Handle)

	setupAuthRoutes(apiV1.Group("/auth"), authHandler, cfg)

	// User management routes (Admin only)
	userRoutes := apiV1.Group("/users", middleware.AuthMiddleware(cfg), middleware.AdminOnly())
	setupUserRoutes(userRoutes, userHandler)

	// Profile routes (Authenticated users)
	profileRoutes := apiV1.Group("/profile", middleware.AuthMiddleware(cfg))
	profileRoutes.Put("/password", userHandler.ChangePassword)

	setupBookRoutes(apiV1.Group("/books"), bookHandler, cfg)

	memberRoutes := apiV1.Group("/members", middleware.AuthMiddleware(cfg))
	setupMemberRoutes(memberRoutes, memberHandler)

	borrowingRoutes := apiV1.Group("/borrowings", middleware.AuthMiddleware(cfg))
	setupBorrowingRoutes(borrowingRoutes, borrowingHandler)

	apiV1.Get("/events", middleware.AuthMiddleware(cfg), middleware.StaffOnly(), eventHandler.Stream)

	xmlRoutes := apiV1.Group("/xml")
	xmlRoutes.Get("/schemas", middleware.CacheControl(5*time.Minute), xmlHandler.Schemas)
	xmlRoutes.Post("/validate", middleware.NoCacheHeaders(), xmlHandler.Validate)
	xmlRoutes.Post("/xpath", middleware.NoCacheHeaders(), xmlHandler.XPath)

	return cronService
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Get("/verify", middleware.AuthMiddleware(cfg), handler.Verify)
	router.Post("/register", middleware.AuthMiddleware(cfg), middleware.AdminOnly(), handler.Register)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.ListUsers)
	router.Put("/:id/role", handler.UpdateRole)
	router.Delete("/:id", handler.DeleteUser)
}

// setupBookRoutes configures catalogue routes. Reads are public.
func setupBookRoutes(router fiber.Router, handler *handlers.BookHandler, cfg *config.Config) {
	router.Get("/", handler.List)
	router.Get("/search", handler.Search)
	router.Get("/search/advanced", handler.AdvancedSearch)
	router.Get("/report", middleware.NoCacheHeaders(), handler.Report)
	router.Get("/report/data", handler.ReportData)
	router.Get("/transform", handler.Transform)
	router.Get("/xml", handler.XML)
	router.Get("/xpath", handler.XPath)
	router.Get("/validate-dtd", handler.ValidateDTD)
	router.Get("/:id", handler.Get)

	auth := middleware.AuthMiddleware(cfg)
	router.Post("/", auth, middleware.StaffOnly(), handler.Create)
	router.Put("/:id", auth, middleware.StaffOnly(), handler.Update)
	router.Delete("/:id", auth, middleware.AdminOnly(), handler.Delete)
}

// setupMemberRoutes configures member routes
func setupMemberRoutes(router fiber.Router, handler *handlers.MemberHandler) {
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Post("/", middleware.StaffOnly(), handler.Create)
	router.Put("/:id", middleware.StaffOnly(), handler.Update)
	router.Delete("/:id", middleware.AdminOnly(), handler.Delete)
}

// setupBorrowingRoutes configures circulation routes
func setupBorrowingRoutes(router fiber.Router, handler *handlers.BorrowingHandler) {
	router.Get("/", handler.List)
	router.Get("/overdue", handler.Overdue)
	router.Get("/:id", handler.Get)
	router.Post("/", middleware.StaffOnly(), handler.Create)
	router.Put("/:id/return", middleware.StaffOnly(), handler.Return)
}
