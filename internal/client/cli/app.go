package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/newsclient/internal/client/client"
	"github.com/dmitrijs2005/newsclient/internal/client/config"
	"github.com/dmitrijs2005/newsclient/internal/client/metrics"
	"github.com/dmitrijs2005/newsclient/internal/client/services"
	"github.com/dmitrijs2005/newsclient/internal/logging"
	"github.com/prometheus/client_golang/prometheus"

	_ "modernc.org/sqlite"
)

type App struct {
	config   *config.Config
	db       *sql.DB
	api      client.Client
	state    *services.State
	registry *prometheus.Registry
	log      logging.Logger

	reader *bufio.Reader
	out    io.Writer

	view View
	// listed holds the story ids of the last rendered list, so "fav 3"
	// can refer to the third story shown.
	listed []string
}

// NewApp opens the session store, builds the service client and the State.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init session store %s: %w", c.DBPath, err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	httpClient := &http.Client{
		Timeout:   c.RequestTimeout,
		Transport: collector.RoundTripper(http.DefaultTransport),
	}
	api, err := client.NewHTTPClient(c.ServerURL,
		client.WithHTTPClient(httpClient),
		client.WithRateLimit(c.RequestsPerSecond, 1),
		client.WithLogger(log),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	feed := services.NewFeed(api, log)
	state := services.NewState(
		services.NewSessionStore(db),
		services.NewUserService(api, log),
		feed,
		services.NewFavorites(api, feed, log, collector),
		log,
	)

	a := newApp(state, bufio.NewReader(os.Stdin), os.Stdout, log)
	a.config = c
	a.db = db
	a.api = api
	a.registry = registry
	return a, nil
}

func newApp(state *services.State, reader *bufio.Reader, out io.Writer, log logging.Logger) *App {
	return &App{
		state:  state,
		log:    log,
		reader: reader,
		out:    out,
		view:   ViewFeed,
	}
}

// Run restores the session, loads the feed and serves the REPL until the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if a.config != nil && a.config.MetricsAddr != "" {
		go a.serveMetrics(ctx, a.config.MetricsAddr)
	}

	if err := a.state.Init(ctx); err != nil {
		a.log.Warn(ctx, "initial feed load failed", "error", err)
		fmt.Fprintln(a.out, describeError(err))
	}

	a.Root(ctx)
	return nil
}

func (a *App) Close() {
	if a.api != nil {
		_ = a.api.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.state.CurrentUser().Authenticated()
}

func (a *App) serveMetrics(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.NewServeMux(a.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.Info(ctx, "serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.Error(ctx, "metrics server stopped", "error", err)
	}
}

// describeError turns a command failure into a line for the user.
func describeError(err error) string {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return "You need to log in first."
	case errors.Is(err, services.ErrUnknownStory):
		return "No such story. Try 'refresh'."
	case errors.Is(err, client.ErrUnauthorized):
		return "The service did not accept your credentials. Please log in again."
	case errors.Is(err, client.ErrValidation):
		return fmt.Sprintf("Invalid input: %v", err)
	case errors.Is(err, client.ErrUnavailable):
		return "The news service is unavailable, try again later."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
