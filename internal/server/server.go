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
	"github.com/go-chi/cors"
	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/auth"
	"github.com/inkpress/apiserver/internal/db"
	"github.com/inkpress/apiserver/internal/handlers"
	"github.com/inkpress/apiserver/internal/media"
	"github.com/inkpress/apiserver/internal/mq"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/internal/storage"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/internal/store/memstore"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the router is built from.
type Deps struct {
	Config   config.Config
	Users    *services.UserService
	Posts    *services.PostService
	Comments *services.CommentService
	Codec    *auth.TokenCodec
	Logger   zerolog.Logger
}

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	db         *sql.DB
	queue      *mq.MQ
	logger     zerolog.Logger
}

// New connects the configured store, media backend and broker and builds the
// HTTP server on top of them.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		dbConn   *sql.DB
		users    services.UserRepository
		posts    services.PostRepository
		comments services.CommentRepository
	)
	switch cfg.Database.Driver {
	case "memory":
		st := memstore.New()
		users, posts, comments = st.Users(), st.Posts(), st.Comments()
		logger.Warn().Msg("using the in-memory store, data will not survive a restart")
	default:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		dbConn = conn
		users = store.NewUserRepository(conn)
		posts = store.NewPostRepository(conn)
		comments = store.NewCommentRepository(conn)
	}

	objects, err := storage.NewBackend(ctx, cfg.Media)
	if err != nil {
		closeDB(dbConn)
		return nil, err
	}
	if err := storage.NewStorage(objects).Ready(ctx); err != nil {
		logger.Warn().Err(err).Msg("media bucket not ready, uploads may fail")
	}

	broker, err := mq.NewBackend(ctx, cfg.MQ)
	if err != nil {
		closeDB(dbConn)
		return nil, err
	}
	queue := mq.New(broker)
	if !queue.Enabled() {
		logger.Info().Msg("no message broker configured, failed media deletes will not be retried")
	}

	gateway := media.NewGateway(objects, cfg.Media)
	cleanup := media.NewCleanupQueue(queue, cfg.MQ.CleanupChannel)

	userService := services.NewUserService(users, cfg.Auth.BcryptCost)
	deps := Deps{
		Config:   cfg,
		Users:    userService,
		Posts:    services.NewPostService(posts, comments, gateway, cleanup, cfg.Media.DeleteTimeout, logger),
		Comments: services.NewCommentService(comments, posts),
		Codec:    auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Logger:   logger,
	}
	handler := NewRouter(deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handler: handler,
		db:      dbConn,
		queue:   queue,
		logger:  logger,
	}, nil
}

// NewRouter mounts every route behind the shared middleware stack. Identity
// is resolved once per request before routing.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logger := d.Logger

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		accessLog(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			ExposedHeaders:   []string{"Location"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	resolver := auth.NewResolver(d.Codec, d.Users, cfg.Auth.LookupTimeout, logger)
	router.Use(resolver.Middleware)

	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, handlers.NewAuthHandler(d.Users, d.Codec, cfg.Auth.CookieSecure, logger))
	})
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, handlers.NewPostHandler(d.Posts, d.Comments, cfg.Media.MaxBytes, logger))
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, handlers.NewUserHandler(d.Users, d.Posts, logger))
	})
	return router
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown drains in-flight requests and closes owned connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if qerr := s.queue.Close(); qerr != nil {
		s.logger.Warn().Err(qerr).Msg("closing message broker")
	}
	closeDB(s.db)
	return err
}

func closeDB(conn *sql.DB) {
	if conn != nil {
		_ = conn.Close()
	}
}
