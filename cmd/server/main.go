package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/kouprey/storefront/internal/config"
	"github.com/kouprey/storefront/internal/eventlog"
	"github.com/kouprey/storefront/internal/handlers"
	"github.com/kouprey/storefront/internal/logger"
	"github.com/kouprey/storefront/internal/media"
	"github.com/kouprey/storefront/internal/orders"
	"github.com/kouprey/storefront/internal/payment"
	"github.com/kouprey/storefront/internal/shutdown"
	"github.com/kouprey/storefront/internal/store"
)

const gatewayName = "payu"

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{
		Service: "kouprey",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	// 2. Init DB
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(store.Migrations()); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// 3. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	sessionStore.Options.MaxAge = 12 * 60 * 60
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 4. Templates
	templates := handlers.NewTemplateCache()
	if err := templates.Load(handlers.Templates()); err != nil {
		log.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// 5. Domain services
	events := eventlog.NewRecorder(db, eventlog.NewRing(eventlog.DefaultCapacity), log)
	orderService := orders.NewService(db)

	base := cfg.BaseURL()
	initiator := payment.NewInitiator(orderService, payment.GatewayConfig{
		Name:        gatewayName,
		Key:         cfg.PayUKey,
		Salt:        cfg.PayUSalt,
		ActionURL:   cfg.PayUURL,
		SuccessURL:  base + "/payu/success",
		FailureURL:  base + "/payu/failure",
		ProductInfo: cfg.BrandName + " Order",
	})
	reconciler := payment.NewReconciler(orderService, events, gatewayName, log)
	if cfg.PayUVerifyCallback {
		reconciler.Verifier = payment.ReverseHashVerifier{Key: cfg.PayUKey, Salt: cfg.PayUSalt, Signer: initiator.Signer}
		log.Info("PayU callback hash verification enabled")
	}

	blobs, err := media.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Error("Failed to prepare upload directory", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	var masterHash []byte
	if cfg.MasterEmail != "" && cfg.MasterPassword != "" {
		masterHash, err = bcrypt.GenerateFromPassword([]byte(cfg.MasterPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash master password", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// 6. Handlers and routes
	router := &handlers.Router{
		Home:      &handlers.HomeHandler{Store: db, Templates: templates, Events: events, Brand: cfg.BrandName},
		Checkout:  &handlers.CheckoutHandler{Initiator: initiator, Templates: templates, Events: events, Brand: cfg.BrandName},
		Payment:   &handlers.PaymentHandler{Reconciler: reconciler, Templates: templates, Events: events},
		Orders:    &handlers.OrderHandler{Store: db, Orders: orderService, Events: events},
		Products:  &handlers.ProductHandler{Store: db, Events: events},
		Reviews:   &handlers.ReviewHandler{Store: db, Events: events},
		Uploads:   &handlers.UploadHandler{Uploader: media.NewUploader(blobs, cfg.UploadBaseURL), Events: events},
		Health:    &handlers.HealthHandler{Store: db, Events: events, Started: time.Now().UTC()},
		Hash:      &handlers.HashHandler{Signer: payment.SHA512Signer{}},
		Sessions:  sessionStore,
		UploadDir: cfg.UploadDir,
		Auth: &handlers.AuthHandler{
			Store:              db,
			SessionStore:       sessionStore,
			MasterEmail:        cfg.MasterEmail,
			MasterPasswordHash: masterHash,
		},
		// 10 login attempts per IP per minute
		LoginLimiter: handlers.NewRateLimiter(ctx, 10, time.Minute),
		CSRF: csrf.Protect(
			cfg.CSRFKey,
			csrf.Secure(cfg.CookieSecure),
			csrf.Path("/"),
			csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
		),
	}

	// 7. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := shutdown.Serve(ctx, server, 10*time.Second); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
	log.Info("Server exited gracefully.")
}
