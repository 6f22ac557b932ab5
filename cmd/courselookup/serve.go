package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/oarkflow/json"
	"github.com/spf13/cobra"

	"github.com/oarkflow/courselookup"
	"github.com/oarkflow/courselookup/metrics"
	"github.com/oarkflow/courselookup/proxy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search, the API gateway and metrics over HTTP.",
	Long: heredoc.Doc(`
		Routes:
		  /search          GET ?q=... or POST {"q": ...}
		  /search/status   index and query statistics
		  /api/...         relayed to --backend (prefix set by --proxy-prefix)
		  /metrics         Prometheus metrics
		  /healthz         liveness and index state
	`),
	Example: heredoc.Doc(`
		courselookup serve --addr :8000 --backend http://localhost:8080
		COURSELOOKUP_DATASET_SOURCE=s3://course-data/courses.json courselookup serve
	`),
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8000", "listen address")
	f.String("backend", "http://localhost:8080", "review backend base URL")
	f.String("proxy-prefix", "/api/", "path prefix relayed to the backend")
	f.Duration("proxy-timeout", 0, "upstream request timeout (0 disables)")
	f.Float64("rate-limit", 0, "upstream requests per second (0 disables)")
	f.Int("burst", 1, "upstream rate limit burst")
	f.Int("courses", courselookup.DefaultCourseCap, "default course result cap")
	f.Int("instructors", courselookup.DefaultInstructorCap, "default instructor result cap")
	f.Int("cache-size", 256, "query cache entries (0 disables)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	collector := metrics.New()

	monitor := courselookup.NewPerformanceMonitor()
	observer := courselookup.MultiObserver(monitor, collector)

	store, err := newStore(logger, courselookup.WithObserver(observer))
	if err != nil {
		return err
	}
	cache := courselookup.NewQueryCache(appCfg.Search.CacheSize, appCfg.Search.CacheTTL, observer)
	manager := courselookup.NewManager(store,
		courselookup.WithManagerCaps(appCfg.Caps()),
		courselookup.WithManagerCache(cache),
		courselookup.WithManagerMonitor(monitor),
		courselookup.WithManagerObserver(collector),
		courselookup.WithManagerLogger(logger),
	)
	gateway, err := proxy.New(appCfg.Backend.URL,
		proxy.WithLogger(logger),
		proxy.WithObserver(collector),
		proxy.WithTimeout(appCfg.Proxy.Timeout),
		proxy.WithRateLimit(appCfg.Proxy.RateLimit, appCfg.Proxy.Burst),
	)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	manager.RegisterRoutes(mux)
	mux.Handle(appCfg.Proxy.Prefix, gateway)
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"index_loaded": store.Loaded(),
		})
	})

	srv := &http.Server{
		Addr:              appCfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go store.Preload(context.WithoutCancel(ctx))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", appCfg.Server.Addr,
			"backend", appCfg.Backend.URL,
			"dataset", appCfg.Dataset.Source,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
