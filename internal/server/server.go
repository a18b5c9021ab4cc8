package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/listingdesk/listingdesk/config"
	"github.com/listingdesk/listingdesk/internal/db"
	"github.com/listingdesk/listingdesk/internal/handlers"
	"github.com/listingdesk/listingdesk/internal/logging"
	"github.com/listingdesk/listingdesk/internal/mirror"
	"github.com/listingdesk/listingdesk/internal/mq"
	"github.com/listingdesk/listingdesk/internal/services"
	"github.com/listingdesk/listingdesk/internal/sheets"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/rs/zerolog"
)

// Services are the use-cases the router dispatches to.
type Services struct {
	Sessions handlers.SessionUsers
	Users    handlers.UserService
	Listings handlers.ListingService
	Sources  handlers.ListingSourceService
}

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	log        zerolog.Logger
}

// New opens the database, the spreadsheet client and the optional message
// queue and builds the router over them.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	sessions, err := handlers.NewSessions(cfg.Session)
	if err != nil {
		return nil, err
	}

	sheetClient, err := sheets.NewClient(cfg.Sheets)
	if err != nil {
		return nil, fmt.Errorf("sheets: %w", err)
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		events *services.ListingEvents
		queue  *mq.MQ
	)
	queue, err = mq.Open(ctx, cfg.MQ)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		log.Info().Msg("listing events disabled")
	case err != nil:
		_ = dbConn.Close()
		return nil, err
	default:
		events = services.NewListingEvents(queue, cfg.MQ.ListingChannel, log)
	}

	st := services.NewStore(store.New(dbConn))
	sheetMirror := mirror.New(sheetClient, cfg.Sheets.Timeout, log)
	userService := services.NewUserService(st, log)

	router, err := NewRouter(Services{
		Sessions: userService,
		Users:    userService,
		Listings: services.NewListingService(st, sheetMirror, events, log),
		Sources:  services.NewListingSourceService(st, log),
	}, sessions, log)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		log:        log,
	}, nil
}

// NewRouter builds the HTTP routes over svc.
func NewRouter(svc Services, sessions *handlers.Sessions, log zerolog.Logger) (*chi.Mux, error) {
	view, err := handlers.NewView(log)
	if err != nil {
		return nil, err
	}
	auth := handlers.NewAuthHandler(svc.Sessions, sessions, view)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(log),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/listings", http.StatusSeeOther)
	})
	handlers.AuthRouter(router, auth)

	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAuth, auth.RequireAdmin)
		r.Route("/listings", func(r chi.Router) {
			handlers.ListingRouter(r, svc.Listings, view)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, svc.Users, view)
		})
		r.Route("/listingsources", func(r chi.Router) {
			handlers.ListingSourceRouter(r, svc.Sources, view)
		})
	})
	return router, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and releases the database and queue.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
