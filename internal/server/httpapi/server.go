// Package httpapi exposes the LinkKeeper services over HTTP/JSON using chi.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/logging"
	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
)

// IdentityService is what the user routes and the gate need from accounts.
type IdentityService interface {
	TokenVerifier
	Register(ctx context.Context, username, email, password string) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID, username, email string) (*models.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
}

type FolderService interface {
	List(ctx context.Context, userID string) ([]*models.Folder, error)
	Get(ctx context.Context, userID, folderID string) (*models.Folder, error)
	Create(ctx context.Context, userID, name, description string) (*models.Folder, error)
	Update(ctx context.Context, userID, folderID, name, description string) (*models.Folder, error)
	Delete(ctx context.Context, userID, folderID string) (int64, error)
}

type LinkService interface {
	ListByFolder(ctx context.Context, userID, folderID string) ([]*models.Link, error)
	Create(ctx context.Context, userID, folderID, title, url, note string) (*models.Link, error)
	Update(ctx context.Context, userID, linkID, title, url, note string) (*models.Link, error)
	Delete(ctx context.Context, userID, linkID string) error
}

// Pinger reports whether storage answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the dependencies of the router.
type Services struct {
	Identity IdentityService
	Folders  FolderService
	Links    LinkService
	Health   Pinger
}

// Limit is a per-IP request budget. A zero Requests disables it.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Limits apply to the user routes that take no session.
type Limits struct {
	Register Limit
	Login    Limit
	Forgot   Limit
	Reset    Limit
}

// DefaultLimits are the budgets the server runs with.
var DefaultLimits = Limits{
	Register: Limit{Requests: 5, Window: time.Hour},
	Login:    Limit{Requests: 10, Window: 5 * time.Minute},
	Forgot:   Limit{Requests: 3, Window: time.Hour},
	Reset:    Limit{Requests: 10, Window: 10 * time.Minute},
}

type HTTPServer struct {
	address        string
	logger         logging.Logger
	svc            Services
	limits         Limits
	requestTimeout time.Duration
	validate       *validator.Validate
	shutdownGrace  time.Duration
}

func NewHTTPServer(address string, l logging.Logger, svc Services, requestTimeout time.Duration, limits Limits) *HTTPServer {
	return &HTTPServer{
		address:        address,
		logger:         l.With("module", "http_server"),
		svc:            svc,
		limits:         limits,
		requestTimeout: requestTimeout,
		validate:       newValidator(),
		shutdownGrace:  5 * time.Second,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Router builds the route tree. Everything under /api except the
// credential-less user routes sits behind the gate.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, r, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/health", s.health)

	gate := Gate(s.svc.Identity, s)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(s.limit(s.limits.Register)).Post("/register", s.register)
			r.With(s.limit(s.limits.Login)).Post("/login", s.login)
			r.With(s.limit(s.limits.Forgot)).Post("/forgot-password", s.forgotPassword)
			r.With(s.limit(s.limits.Reset)).Post("/reset-password/{token}", s.resetPassword)

			r.Group(func(r chi.Router) {
				r.Use(gate)
				r.Get("/profile", s.getProfile)
				r.Put("/profile", s.updateProfile)
				r.Put("/change-password", s.changePassword)
			})
		})

		r.Route("/folders", func(r chi.Router) {
			r.Use(gate)
			r.Get("/", s.listFolders)
			r.Post("/", s.createFolder)
			r.Get("/{id}", s.getFolder)
			r.Put("/{id}", s.updateFolder)
			r.Delete("/{id}", s.deleteFolder)
		})

		r.Route("/links", func(r chi.Router) {
			r.Use(gate)
			r.Post("/", s.createLink)
			r.Get("/{folderId}", s.listLinks)
			r.Put("/{id}", s.updateLink)
			r.Delete("/{id}", s.deleteLink)
		})
	})

	return r
}

func (s *HTTPServer) limit(l Limit) func(http.Handler) http.Handler {
	if l.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(l.Requests, l.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondMessage(w, r, http.StatusTooManyRequests, "too many requests, please try again later")
		}),
	)
}

// requestLogger logs one line per request once it has been served.
func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			s.logger.Info(r.Context(), "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// withTimeout bounds a single service call.
func (s *HTTPServer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
