package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/readnest/readnest-server/config"
	"github.com/readnest/readnest-server/handlers"
	"github.com/readnest/readnest-server/middleware"
	"github.com/readnest/readnest-server/realtime"
	"github.com/readnest/readnest-server/service"
	"github.com/readnest/readnest-server/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	initLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb")
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect")
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongodb indexes")
	}

	var files handlers.FileStorage
	if cfg.S3Bucket != "" {
		fs, err := service.NewFileStore(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("s3")
		}
		files = fs
	} else {
		log.Warn().Msg("AWS_S3_BUCKET not set; uploads will fail")
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	ratings := &service.RatingService{Books: db, Notifier: hub}
	readers := &service.ReaderService{Books: db, History: db, Notifier: hub}

	maxBytes := cfg.MaxUploadMB * 1024 * 1024
	authHandler := &handlers.AuthHandler{
		Users:     db,
		Files:     files,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		MaxBytes:  maxBytes,
	}
	personalBooks := &handlers.PersonalBooksHandler{Books: db, Files: files, MaxBytes: maxBytes}
	publicBooks := &handlers.PublicBooksHandler{Books: db, Rating: ratings}
	fileServing := &handlers.FilesHandler{Source: db, Files: files}
	collections := &handlers.CollectionsHandler{Store: db}
	favorites := &handlers.FavoritesHandler{Store: db}
	history := &handlers.HistoryHandler{Store: db, Readers: readers}
	ws := &handlers.RealtimeHandler{Hub: hub, AllowedOrigins: cfg.CORSOrigins}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestLogger())
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/ws", ws.Serve)

	r.Route("/api", func(r chi.Router) {
		// Credential endpoints are the brute-force target; rate limit them.
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.AuthRateLimit, time.Minute))
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Get("/auth/profile", authHandler.Profile)
			r.Put("/auth/profile", authHandler.UpdateProfile)
			r.Post("/auth/profile/image", authHandler.UploadProfileImage)
			r.Put("/auth/password", authHandler.ChangePassword)
			r.Delete("/auth/profile", authHandler.DeleteProfile)

			r.Get("/personal-books", personalBooks.List)
			r.Post("/personal-books", personalBooks.Create)
			r.Get("/personal-books/{id}", personalBooks.Get)
			r.Put("/personal-books/{id}", personalBooks.Update)
			r.Delete("/personal-books/{id}", personalBooks.Delete)

			r.Get("/collections", collections.List)
			r.Post("/collections", collections.Create)
			r.Put("/collections/{id}", collections.Rename)
			r.Delete("/collections/{id}", collections.Delete)
			r.Post("/collections/{id}/books", collections.AddBook)
			r.Delete("/collections/{id}/books/{bookId}", collections.RemoveBook)
			r.Post("/collections/add-from-public/{bookId}", collections.AddFromPublic)

			r.Get("/favorites", favorites.List)
			r.Post("/favorites", favorites.Add)
			r.Delete("/favorites/{bookId}", favorites.Remove)

			r.Get("/history", history.List)
			r.Post("/history", history.Record)
		})

		r.Get("/personal-books/trending", personalBooks.Trending)

		r.Get("/public-books", publicBooks.List)
		r.Get("/public-books/search", publicBooks.Search)
		r.Get("/public-books/author/{authorName}", publicBooks.ByAuthor)
		r.Get("/public-books/genres", publicBooks.Genres)

		// Anonymous callers are identified by IP; authenticated ones by id.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWTSecret))
			r.Post("/public-books/{bookId}/rate", publicBooks.Rate)
			r.Get("/books/{id}/file", fileServing.BookFile)
		})

		r.Get("/books/{id}/cover", fileServing.Cover)
		r.Get("/users/{id}/profile-image", fileServing.ProfileImage)
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	cancel() // stops the hub and drops websocket clients
}

func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func requestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		withLogger := hlog.NewHandler(log.Logger)
		access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		})
		return withLogger(access(next))
	}
}
