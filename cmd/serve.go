package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/internal/finder"
	"github.com/sells-group/chronodose-cli/internal/geo"
	"github.com/sells-group/chronodose-cli/internal/report"
	"github.com/sells-group/chronodose-cli/internal/resilience"
)

var servePort int

// runner is the part of finder.Finder the server needs.
type runner interface {
	Run(ctx context.Context, opts finder.Options) (*report.Report, error)
}

type server struct {
	finder   runner
	defaults finder.Options
	breaker  *resilience.CircuitBreaker
	origins  []string
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/chronodoses", s.handleChronodoses)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.breaker != nil {
		failures, _ := s.breaker.Counters()
		body["booking_backend"] = s.breaker.State().String()
		body["booking_failures"] = failures
	}
	writeJSON(w, http.StatusOK, body)
}

// handleChronodoses runs one finder pass. lat and lon must come together;
// radius and vaccine are optional.
func (s *server) handleChronodoses(w http.ResponseWriter, r *http.Request) {
	opts, err := s.optionsFrom(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rep, err := s.finder.Run(r.Context(), opts)
	if err != nil {
		zap.L().Error("finder run failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "availability feed unavailable"})
		return
	}

	if r.URL.Query().Get("format") == "yaml" {
		w.Header().Set("Content-Type", "application/yaml")
		_ = report.WriteYAML(w, rep)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *server) optionsFrom(r *http.Request) (finder.Options, error) {
	opts := s.defaults
	q := r.URL.Query()

	lat, lon := q.Get("lat"), q.Get("lon")
	switch {
	case lat != "" && lon != "":
		p, err := geo.ParsePoint(lat + "," + lon)
		if err != nil {
			return opts, err
		}
		opts.Filter.Origin = p
	case lat != "" || lon != "":
		return opts, errors.New("lat and lon must be given together")
	}

	if v := q.Get("radius"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 || radius > 200 {
			return opts, fmt.Errorf("radius %q must be a number of km in (0, 200]", v)
		}
		opts.Filter.RadiusKM = radius
	}
	if v := q.Get("vaccine"); v != "" {
		opts.Vaccine = v
	}
	return opts, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ranked chronodoses over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		scanner, breaker := newScanner(cfg, newBookingClient(cfg))
		s := &server{
			finder:   newFinder(cfg, newFeedFetcher(cfg), scanner),
			defaults: finderOptions(cfg),
			breaker:  breaker,
			origins:  cfg.Server.AllowedOrigins,
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
