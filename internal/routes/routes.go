package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/roamstay/roamstay/internal/booking"
	"github.com/roamstay/roamstay/internal/config"
	"github.com/roamstay/roamstay/internal/credential"
	"github.com/roamstay/roamstay/internal/identity"
	"github.com/roamstay/roamstay/internal/mailer"
	"github.com/roamstay/roamstay/internal/middleware"
	"github.com/roamstay/roamstay/internal/referral"
	"github.com/roamstay/roamstay/internal/verification"
	"github.com/roamstay/roamstay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Credentials is populated by Setup so main can hand the store to the
	// background sweeper.
	Credentials credential.Store
}

// Setup configures middlewares and all application routes, choosing Postgres
// and Redis backends when available and in-memory ones otherwise.
func Setup(app *fiber.App, d *Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	// Storage backends.
	var credStore credential.Store
	if d.Cache != nil {
		credStore = credential.NewRedisStore(d.Cache)
	} else {
		credStore = credential.NewMemoryStore()
	}
	d.Credentials = credStore

	var ledgerBackend wallet.Ledger
	var referralRepo referral.Repository
	var bookingRepo booking.Repository
	var accountRepo identity.Repository
	if d.DB != nil {
		ledgerBackend = wallet.NewPostgresLedger(d.DB)
		referralRepo = referral.NewPostgresRepository(d.DB)
		bookingRepo = booking.NewPostgresRepository(d.DB)
		accountRepo = identity.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = wallet.NewInMemory()
		referralRepo = referral.NewMemoryRepository()
		bookingRepo = booking.NewMemoryRepository()
		accountRepo = identity.NewMemoryRepository()
	}

	var mail mailer.Mailer
	if d.Cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(d.Cfg.SMTPHost, d.Cfg.SMTPPort, d.Cfg.SMTPUser, d.Cfg.SMTPPassword, d.Cfg.SMTPFrom)
	} else {
		mail = mailer.NewLoggerMailer(d.Logger)
	}

	// Services and handlers.
	accounts := identity.NewService(accountRepo)
	verifySvc := verification.NewService(credStore, mail, accounts, verification.Config{
		OTPTTL:        d.Cfg.OTPTTL,
		ResetTokenTTL: d.Cfg.ResetTokenTTL,
		ResetLinkBase: d.Cfg.ResetLinkBase,
	}, d.Logger)
	processor := referral.NewProcessor(referralRepo, bookingRepo, ledgerBackend, d.Cfg.ReferralRewardAmount, d.Logger)

	verifyHandler := verification.NewHandler(verifySvc)
	walletHandler := wallet.NewHandler(ledgerBackend)
	referralHandler := referral.NewHandler(referralRepo, processor)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	otpLimiter := middleware.OTPRequestRateLimit(d.Cache, d.Cfg.OTPRequestsPerMin)
	RegisterVerificationRoutes(api, verifyHandler, otpLimiter)

	// Mutating wallet and referral endpoints honor Idempotency-Key retries
	// and leave a structured audit trail.
	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	audited := api.Group("", middleware.Audit(d.Logger))
	RegisterWalletRoutes(audited, walletHandler, idem)
	RegisterReferralRoutes(audited, referralHandler, idem)

	return nil
}
