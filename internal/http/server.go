package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/obligation"
	"bilancio/internal/services"

	"github.com/gorilla/mux"
)

type Options struct {
	Addr string
	// AgendaPreview is how many pending entries a summary previews when the
	// request does not say (default 4).
	AgendaPreview int
	// RequestsPerMinute limits writes per client (default 60).
	RequestsPerMinute int
	// CacheTTL bounds how long a computed summary is reused (default 30s).
	CacheTTL time.Duration
	// KeepAlive is the interval of event stream pings (default 25s).
	KeepAlive time.Duration
	Logger    *log.Logger
}

type Server struct {
	http.Server
	households *services.HouseholdService
	logger     *log.Logger

	summaries    *cache.LRUCache[obligation.Summary]
	cacheManager *cache.Manager

	rateLimiter     *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware

	agendaPreview int
	keepAlive     time.Duration
	started       time.Time

	stopInvalidation func()
	shutdownOnce     sync.Once
}

// NewServer wires routes and middleware over the household service. The
// returned server is ready to ListenAndServe.
func NewServer(households *services.HouseholdService, opts Options) *Server {
	if opts.AgendaPreview <= 0 {
		opts.AgendaPreview = 4
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 25 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		households:    households,
		logger:        opts.Logger.WithComponent(log.ComponentHTTP),
		summaries:     cache.NewLRUCache[obligation.Summary](256, opts.CacheTTL),
		cacheManager:  cache.NewManager(),
		rateLimiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector:      security.NewDetector(),
		agendaPreview: opts.AgendaPreview,
		keepAlive:     opts.KeepAlive,
		started:       time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.cacheManager.Register(s.summaries)
	s.cacheManager.StartCleanup(time.Minute)
	s.stopInvalidation = s.watchChanges()

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.Logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: event streams stay open.
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	// A method mismatch inside a subrouter does not reach the root handler,
	// so every router carries its own.
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})
	r.MethodNotAllowedHandler = methodNotAllowed

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = methodNotAllowed
	api.HandleFunc("/households", s.handleHouseholds).Methods(http.MethodGet)

	h := api.PathPrefix("/households/{household}").Subrouter()
	h.MethodNotAllowedHandler = methodNotAllowed
	h.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	h.HandleFunc("/agenda", s.handleAgenda).Methods(http.MethodGet)
	h.HandleFunc("/projection", s.handleProjection).Methods(http.MethodGet)
	h.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	h.HandleFunc("/purchases", s.handleCreatePurchase).Methods(http.MethodPost)
	h.HandleFunc("/purchases/{id}", s.handleUpdatePurchase).Methods(http.MethodPut)
	h.HandleFunc("/purchases/{id}", s.handleDeletePurchase).Methods(http.MethodDelete)

	h.HandleFunc("/cards", s.handleSaveCard).Methods(http.MethodPost)
	h.HandleFunc("/cards/{id}", s.handleDeleteCard).Methods(http.MethodDelete)
	h.HandleFunc("/cards/{id}/obligation", s.handleCardObligation).Methods(http.MethodGet)
	h.HandleFunc("/cards/{id}/usage", s.handleCardUsage).Methods(http.MethodGet)
	h.HandleFunc("/cards/{id}/adjustments/{month}", s.handleSetAdjustment).Methods(http.MethodPut)
	h.HandleFunc("/cards/{id}/adjustments/{month}", s.handleClearAdjustment).Methods(http.MethodDelete)
	h.HandleFunc("/cards/{id}/paid/{month}", s.handleToggleCardPaid).Methods(http.MethodPost)

	h.HandleFunc("/services", s.handleSaveService).Methods(http.MethodPost)
	h.HandleFunc("/services/{id}", s.handleDeleteService).Methods(http.MethodDelete)
	h.HandleFunc("/services/{id}/paid/{month}", s.handleToggleServicePaid).Methods(http.MethodPost)

	h.HandleFunc("/shopping", s.handleSaveShoppingItem).Methods(http.MethodPost)
	h.HandleFunc("/shopping/{id}", s.handleDeleteShoppingItem).Methods(http.MethodDelete)
	h.HandleFunc("/shopping/{id}/toggle", s.handleToggleShoppingItem).Methods(http.MethodPost)

	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, retry later").Write(w)
	}, http.MethodPost, http.MethodPut, http.MethodDelete)

	var handler http.Handler = r
	handler = limited(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.GetRequestID)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = log.Middleware(logger)(handler)
	return handler
}

// watchChanges drops cached summaries of a household whenever one of its
// collections changes. It returns the function that stops watching.
func (s *Server) watchChanges() func() {
	changes, cancel := s.households.Subscribe("")
	go func() {
		for c := range changes {
			if n := s.summaries.DeletePrefix(cacheKey(c.Household)); n > 0 {
				s.logger.Debug("Summary cache invalidated",
					log.FieldHousehold, c.Household,
					log.FieldCollection, c.Collection,
					"entries", n)
			}
		}
	}()
	return cancel
}

// invalidate drops a household's cached summaries right after a write, so
// the writer reads its own change even before the notification arrives.
func (s *Server) invalidate(household string) {
	s.summaries.DeletePrefix(cacheKey(household))
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopInvalidation()
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
