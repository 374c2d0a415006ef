// Command roulette draws random Nicolas Cage movies from the tracker API, honoring the
// signed-in user's seen list and watchlist. It can also rate or toggle a movie.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/user/cagetracker/internal/apiclient"
	"github.com/user/cagetracker/internal/config"
	"github.com/user/cagetracker/internal/interaction"
	"github.com/user/cagetracker/internal/logging"
	"github.com/user/cagetracker/internal/model"
	"github.com/user/cagetracker/internal/sampler"
	"github.com/user/cagetracker/internal/service"
	"github.com/user/cagetracker/internal/tokenstore"
)

type options struct {
	email       string
	password    string
	logout      bool
	draws       int
	genre       string
	masterpiece bool
	unseen      bool
	watchlist   bool
	rate        string // movieID:star
	toggle      string // movieID:favorite|watchlist|seen
}

func main() {
	var opts options
	flag.StringVar(&opts.email, "email", os.Getenv("CAGE_EMAIL"), "sign in with this email")
	flag.StringVar(&opts.password, "password", os.Getenv("CAGE_PASSWORD"), "password for -email")
	flag.BoolVar(&opts.logout, "logout", false, "forget the stored token and exit")
	flag.IntVar(&opts.draws, "n", 1, "number of movies to draw")
	flag.StringVar(&opts.genre, "genre", sampler.AllGenres, "only draw this genre")
	flag.BoolVar(&opts.masterpiece, "masterpiece", false, "only titles containing the masterpiece keyword")
	flag.BoolVar(&opts.unseen, "unseen", false, "skip movies already seen")
	flag.BoolVar(&opts.watchlist, "watchlist", false, "only movies on the watchlist")
	flag.StringVar(&opts.rate, "rate", "", "rate a movie, as movieID:star (1-5; repeating a star steps down by half)")
	flag.StringVar(&opts.toggle, "toggle", "", "toggle a movie, as movieID:favorite|watchlist|seen")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(logging.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, log); err != nil {
		if msg := apiclient.UserMessage(err); msg != "" && msg != apiclient.DefaultMessage {
			fmt.Fprintln(os.Stderr, "error:", msg)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, log zerolog.Logger) error {
	tokens, err := tokenstore.NewFileStore(cfg.TokenDir)
	if err != nil {
		return err
	}
	svc, err := service.New(cfg, tokens, log, func(context.Context) {
		fmt.Fprintln(os.Stderr, "session expired, sign in again with -email and -password")
	})
	if err != nil {
		return err
	}

	if opts.logout {
		return svc.Auth.Logout(ctx)
	}

	// the sandbox may still be starting
	var catalog []model.Movie
	err = retry.Do(func() error {
		var err error
		catalog, err = svc.Movies.List(ctx, model.MovieFilter{})
		return err
	},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(300*time.Millisecond),
		retry.RetryIf(func(err error) bool { return errors.Is(err, apiclient.ErrNetwork) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	if opts.email != "" {
		if err := svc.Auth.Login(ctx, opts.email, opts.password); err != nil {
			return err
		}
		// login clears the cache
		if catalog, err = svc.Movies.List(ctx, model.MovieFilter{}); err != nil {
			return err
		}
	}

	signedIn, err := svc.Auth.Authenticated(ctx)
	if err != nil {
		return err
	}
	var user *model.User
	if signedIn {
		if user, err = svc.Users.CurrentUser(ctx); err != nil {
			return err
		}
	}

	if opts.rate != "" || opts.toggle != "" {
		if user == nil {
			return errors.New("sign in first")
		}
		return interact(ctx, svc, user, opts)
	}

	if user == nil && (opts.unseen || opts.watchlist) {
		return errors.New("-unseen and -watchlist need a signed-in user")
	}

	s := sampler.New(cfg.MasterpieceKeyword, nil)
	s.SetCatalog(catalog)
	s.SetUser(user)
	s.SetFilters(sampler.Filters{
		Genre:       opts.genre,
		Masterpiece: opts.masterpiece,
		Unseen:      opts.unseen,
		Watchlist:   opts.watchlist,
	})

	for i := 0; i < opts.draws; i++ {
		res := s.Draw()
		if res.Status == sampler.Empty {
			fmt.Println("No movies match these filters.")
			return nil
		}
		printMovie(ctx, svc, res.Movie)
	}
	return nil
}

func interact(ctx context.Context, svc *service.Services, user *model.User, opts options) error {
	var movieID, arg string
	var t interaction.Transition
	switch {
	case opts.rate != "":
		movieID, arg, _ = strings.Cut(opts.rate, ":")
		star, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("bad -rate %q: %w", opts.rate, err)
		}
		t = interaction.Rate{Star: star}
	default:
		movieID, arg, _ = strings.Cut(opts.toggle, ":")
		switch model.Collection(arg) {
		case model.CollectionFavorites:
			t = interaction.ToggleFavorite{}
		case model.CollectionWatchlist:
			t = interaction.ToggleWatchlist{}
		case model.CollectionSeen:
			t = interaction.ToggleSeen{}
		default:
			return fmt.Errorf("bad -toggle %q", opts.toggle)
		}
	}

	svc.Interaction.Hydrate(movieID, user)
	state, err := svc.Interaction.Apply(ctx, movieID, t)
	if err != nil {
		var te *interaction.TransitionError
		if errors.As(err, &te) && te.Message != "" {
			return errors.New(te.Message)
		}
		return err
	}
	fmt.Printf("%s: seen=%t favorite=%t watchlist=%t rating=%s\n",
		movieID, state.Seen, state.Favorite, state.Watchlist, formatRating(state.Rating))
	return nil
}

func printMovie(ctx context.Context, svc *service.Services, m model.Movie) {
	year, _, _ := strings.Cut(m.ReleaseDate, "-")
	fmt.Printf("%s (%s), %s, directed by %s\n", m.Title, year, strings.Join(m.Genres, "/"), m.Director)
	if avg, err := svc.Movies.AverageRating(ctx, m.ID); err == nil && avg > 0 {
		fmt.Printf("  average %s\n", formatRating(model.Rating(avg)))
	}
	if m.Description != "" {
		fmt.Printf("  %s\n", m.Description)
	}
	fmt.Printf("  id %s\n", m.ID)
}

func formatRating(r model.Rating) string {
	if r.IsZero() {
		return "-"
	}
	full, half := r.Stars()
	stars := strings.Repeat("*", full)
	if half {
		stars += "+"
	}
	return fmt.Sprintf("%s (%.2g)", stars, float64(r))
}
