package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/imagegen"
	"github.com/lox/coastscore/internal/metrics"
	"github.com/lox/coastscore/internal/narrative"
	"github.com/lox/coastscore/internal/store"
)

// Options configures a Server. Areas must not be empty; the first area is
// used when a request does not name one.
type Options struct {
	Addr          string
	Areas         []forecast.Settings
	Narrator      *narrative.Narrator
	ImageGen      *imagegen.Generator // nil disables AI backdrops
	ImageCacheDir string
	BreakerState  func() string // upstream circuit breaker, optional
}

type Server struct {
	store       *store.Store
	addr        string
	areas       map[string]forecast.Settings
	defaultArea string
	narrator    *narrative.Narrator
	imageGen    *imagegen.Generator
	imageCache  *imagegen.Cache
	ogCache     *imagegen.OGImageCache
	genMu       sync.Mutex // one backdrop generation at a time
	breaker     func() string
	now         func() time.Time
}

func NewServer(st *store.Store, opts Options) *Server {
	if len(opts.Areas) == 0 {
		opts.Areas = []forecast.Settings{forecast.DefaultSettings()}
	}
	if opts.ImageCacheDir == "" {
		opts.ImageCacheDir = "data/images"
	}
	if opts.Narrator == nil {
		opts.Narrator = narrative.New("", "")
	}

	areas := make(map[string]forecast.Settings, len(opts.Areas))
	for _, a := range opts.Areas {
		areas[a.AreaID] = a
	}

	if opts.ImageGen == nil {
		log.Printf("api: AI backdrops disabled, using palette cards")
	}

	return &Server{
		store:       st,
		addr:        opts.Addr,
		areas:       areas,
		defaultArea: opts.Areas[0].AreaID,
		narrator:    opts.Narrator,
		imageGen:    opts.ImageGen,
		imageCache:  imagegen.NewCache(opts.ImageCacheDir),
		ogCache:     imagegen.NewOGImageCache(15 * time.Minute),
		breaker:     opts.BreakerState,
		now:         time.Now,
	}
}

// InvalidateArea drops cached share cards for an area. The scheduler calls
// it after storing a new snapshot.
func (s *Server) InvalidateArea(areaID string) {
	s.ogCache.Invalidate(areaID + "|")
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/v1/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/og-image.png", s.counted("og-image", s.handleOGImage))

	r.Route("/v1/views", func(r chi.Router) {
		r.Get("/days", s.counted("days", s.handleDays))
		r.Get("/window", s.counted("window", s.handleWindow))
		r.Get("/hours", s.counted("hours", s.handleHours))
		r.Get("/graph", s.counted("graph", s.handleGraph))
		r.Get("/graph.svg", s.counted("graph-svg", s.handleGraphSVG))
		r.Get("/vibe", s.counted("vibe", s.handleVibe))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, &apiError{status: http.StatusNotFound, code: CodeNotFound, message: "no such route"})
	})
	return r
}

// counted records the response status of a view in ViewRequests.
func (s *Server) counted(view string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		h(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ViewRequests.WithLabelValues(view, strconv.Itoa(status)).Inc()
	}
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("api: shutdown: %v", err)
		}
	}()

	log.Printf("api: listening on %s", s.addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
