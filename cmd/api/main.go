//	@title			Thuddle API
//	@version		1.0
//	@description	Profiles and profile pictures for Thuddle.
//
//	@host		localhost:8080
//	@BasePath	/api
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/thuddle/api/internal/auth"
	"github.com/thuddle/api/internal/cache"
	"github.com/thuddle/api/internal/config"
	"github.com/thuddle/api/internal/db"
	"github.com/thuddle/api/internal/imaging"
	"github.com/thuddle/api/internal/metrics"
	appMiddleware "github.com/thuddle/api/internal/middleware"
	"github.com/thuddle/api/internal/profile"
	"github.com/thuddle/api/internal/storage"
	"github.com/thuddle/api/internal/user"

	_ "github.com/thuddle/api/docs/swagger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	scaler, err := imaging.NewScaler(cfg.PictureSize)
	if err != nil {
		log.Fatalf("image scaler init failed: %v", err)
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	bucket, err := newBucket(cfg)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pictureMetrics := metrics.NewPictures(reg)

	// Wire dependencies: repository → service → handler
	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo)

	profileSvc := profile.NewService(
		userSvc,
		scaler,
		storage.NewPictureStore(bucket),
		cache.NewMemory(time.Minute),
		profile.Options{
			MaxUploadBytes: config.MaxPictureBytes,
			CacheTTL:       config.PictureCacheTTL,
			Metrics:        pictureMetrics,
		},
	)
	profileHandler := profile.NewHandler(profileSvc)

	requireAuth := appMiddleware.RequireAuth(auth.NewVerifier(cfg.JWTSecret))

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Mount("/api/profile", profileHandler.Routes(requireAuth))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s, storage=%s, picture=%dpx)",
			cfg.Port, cfg.AppEnv, cfg.StorageDriver, scaler.Size())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}

func newBucket(cfg *config.Config) (storage.Bucket, error) {
	switch cfg.StorageDriver {
	case "minio":
		return storage.NewMinioBucket(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StorageRegion,
			cfg.StorageUseSSL,
		)
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewS3Bucket(ctx, storage.S3Options{
			Region:    cfg.StorageRegion,
			Bucket:    cfg.StorageBucket,
			Endpoint:  cfg.S3Endpoint(),
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
