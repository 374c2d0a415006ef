package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/user/cagetracker/internal/config"
	"github.com/user/cagetracker/internal/handler"
	"github.com/user/cagetracker/internal/logging"
	"github.com/user/cagetracker/internal/repository"
	"github.com/user/cagetracker/internal/router"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logging.New(logging.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})
	if envErr != nil {
		log.Debug().Msg("no .env file, using process environment")
	}

	repos := repository.NewRepositories(repository.NewStore())
	if err := repository.Seed(repos); err != nil {
		log.Fatal().Err(err).Msg("seed catalog")
	}
	admin, err := repository.EnsureAdmin(repos, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("create admin")
	}
	if admin != nil {
		log.Info().Str("email", admin.Email).Msg("admin account ready")
	}

	h := handler.NewHandler(repos, cfg, log)
	r := router.New(h, log)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info().Int("movies", repos.Movie.Count()).Msgf("sandbox api listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
