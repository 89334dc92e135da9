package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bgmi-scrims-system/handlers"
	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"
	"bgmi-scrims-system/services"
	"bgmi-scrims-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // profile images go through multipart
	})

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitStorage(); err != nil {
		log.Fatal("failed to initialize object storage client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Match{},
		&models.MatchResult{},
		&models.Registration{},
		&models.PaymentOrder{},
		&models.ResultSubmission{},
		&models.HostApplication{},
		&models.MatchRequest{},
		&models.MatchRequestVote{},
		&models.FileMetadata{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	authCfg, err := middleware.LoadAuthConfig()
	if err != nil {
		log.Fatal("failed to load auth config:", err)
	}

	cashfreeCfg, err := services.LoadCashfreeConfig()
	if err != nil {
		log.Fatal("failed to load cashfree config:", err)
	}

	notifyBaseURL := os.Getenv("PUBLIC_BASE_URL")
	if notifyBaseURL == "" {
		log.Fatal("PUBLIC_BASE_URL environment variable not set")
	}

	var mailer services.Mailer
	if os.Getenv("SMTP_HOST") != "" {
		smtpMailer, err := services.NewSMTPMailer()
		if err != nil {
			log.Fatal("failed to initialize mailer:", err)
		}
		mailer = smtpMailer
	} else {
		log.Println("⚠️  SMTP_HOST not set, outbound mail disabled")
		mailer = services.NoopMailer{}
	}

	gateway := services.NewCashfreeClient(cashfreeCfg)

	authService := services.NewAuthService(db, authCfg, mailer)
	matchService := services.NewMatchService(db, mailer)
	registrationService := services.NewRegistrationService(db)
	paymentService := services.NewPaymentService(db, gateway, cashfreeCfg.SecretKey, notifyBaseURL, registrationService)
	resultService := services.NewResultService(db)
	hostService := services.NewHostService(db, mailer)
	requestService := services.NewMatchRequestService(db)
	uploadService := services.NewUploadService(db)

	paymentService.StartReconciliationScheduler()

	handlers.SetupAuthRoutes(app, authService, authCfg)
	handlers.SetupMatchRoutes(app, matchService, registrationService, resultService, authCfg)
	handlers.SetupPaymentRoutes(app, paymentService, authCfg)
	handlers.SetupCommunityRoutes(app, hostService, requestService, authCfg)
	handlers.SetupUploadRoutes(app, uploadService, authCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Payment reconciliation sweep running (every 5m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
