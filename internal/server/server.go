// Package server implements the Digital Buho REST API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/events"
	"github.com/digitalbuho/buho/internal/models"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Options configures a Server
type Options struct {
	Store       *db.DB
	Tokens      *auth.Manager
	Events      events.Publisher
	Log         *logrus.Entry
	CORSOrigins []string
}

// Server serves the API
type Server struct {
	store   *db.DB
	tokens  *auth.Manager
	events  events.Publisher
	log     *logrus.Entry
	metrics *metrics
	schemas *validator
	handler http.Handler
}

// New builds a server and its middleware chain
func New(opts Options) (*Server, error) {
	schemas, err := newValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:   opts.Store,
		tokens:  opts.Tokens,
		events:  opts.Events,
		log:     opts.Log,
		metrics: newMetrics(),
		schemas: schemas,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}

	router := mux.NewRouter()
	router.Use(s.metrics.instrument)
	s.routes(router)
	router.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, &apiError{status: http.StatusMethodNotAllowed, detail: "Método no permitido."})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
	})

	var h http.Handler = router
	h = s.tokens.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		s.writeError(w, r, errTokenNotValid)
	})(h)
	h = s.accessLog(h)
	h = securityHeaders(h)
	h = withRequestID(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(s.log), handlers.PrintRecoveryStack(true))(h)
	s.handler = c.Handler(h)

	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// userHandler is a handler that runs for a signed-in user
type userHandler func(w http.ResponseWriter, r *http.Request, me *models.User)

// currentUser loads the user named by the request's token
func (s *Server) currentUser(r *http.Request) (*models.User, error) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, errNotAuthenticated
	}
	u, err := s.store.GetUser(claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errUserNotFound
	}
	return u, err
}

// authenticated requires a valid access token
func (s *Server) authenticated(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, err := s.currentUser(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		h(w, r, me)
	}
}

// staff requires a valid access token of a staff user or superuser
func (s *Server) staff(h userHandler) http.HandlerFunc {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, me *models.User) {
		if !me.IsStaff && !me.IsSuperuser {
			s.writeError(w, r, errForbidden)
			return
		}
		h(w, r, me)
	})
}

// publish sends a change event; failures are logged and counted, never returned
func (s *Server) publish(r *http.Request, subject string, id int64, data any) {
	if err := s.events.Publish(subject, id, data); err != nil {
		s.metrics.events.WithLabelValues(subject, "error").Inc()
		s.log.WithError(err).WithFields(logrus.Fields{
			"subject":    subject,
			"id":         id,
			"request_id": requestID(r.Context()),
		}).Warn("publish event")
		return
	}
	s.metrics.events.WithLabelValues(subject, "ok").Inc()
}

// pathID returns the {id} route variable
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errNotFound
	}
	return id, nil
}
