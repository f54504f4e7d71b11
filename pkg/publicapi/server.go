package publicapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bacalhau-project/callback-relay/pkg/image"
	"github.com/bacalhau-project/callback-relay/pkg/requeststore"
	"github.com/bacalhau-project/callback-relay/pkg/system"
)

type ServerConfig struct {
	// These are TCP connection deadlines and not HTTP timeouts.
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration

	// Maximum duration for handlers to complete, or else fail the request with 503.
	RequestHandlerTimeout time.Duration
}

var DefaultServerConfig = ServerConfig{
	ReadHeaderTimeout:     10 * time.Second,
	ReadTimeout:           20 * time.Second,
	WriteTimeout:          20 * time.Second,
	RequestHandlerTimeout: 30 * time.Second,
}

// ImageLister is the part of the image registry the API exposes.
type ImageLister interface {
	Entries() []image.Entry
}

type ServerParams struct {
	Host   string
	Port   int
	Images ImageLister
	Store  requeststore.Store
	// Mode is reported by /livez.
	Mode   string
	Config ServerConfig
}

// Server is the relay's read-only status API.
type Server struct {
	Host   string
	Port   int
	images ImageLister
	store  requeststore.Store
	mode   string
	config ServerConfig
	router *mux.Router
}

func NewServer(params ServerParams) *Server {
	if params.Config == (ServerConfig{}) {
		params.Config = DefaultServerConfig
	}
	s := &Server{
		Host:   params.Host,
		Port:   params.Port,
		images: params.Images,
		store:  params.Store,
		mode:   params.Mode,
		config: params.Config,
		router: mux.NewRouter(),
	}
	s.router.Handle("/livez", s.instrument("livez", s.livez)).Methods(http.MethodGet)
	s.router.Handle("/version", s.instrument("version", s.version)).Methods(http.MethodGet)
	s.router.Handle("/images", s.instrument("images", s.listImages)).Methods(http.MethodGet)
	s.router.Handle("/requests", s.instrument("requests", s.listRequests)).Methods(http.MethodGet)
	s.router.Handle("/requests/{id}", s.instrument("request", s.getRequest)).Methods(http.MethodGet)
	return s
}

// GetURI returns the HTTP URI that the server is listening on.
func (s *Server) GetURI() string {
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves the API until the cleanup manager shuts it down.
func (s *Server) ListenAndServe(ctx context.Context, cm *system.CleanupManager) error {
	srv := http.Server{
		Handler:           s.router,
		Addr:              fmt.Sprintf("%s:%d", s.Host, s.Port),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}

	cm.RegisterCallbackWithContext(srv.Shutdown)

	log.Ctx(ctx).Debug().Msgf("API server listening on %s...", srv.Addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		log.Ctx(ctx).Debug().Msgf("API server closed on %s.", srv.Addr)
		return nil
	}
	return err
}

func (s *Server) instrument(name string, fn http.HandlerFunc) http.Handler {
	handler := otelhttp.NewHandler(fn, fmt.Sprintf("pkg/publicapi/%s", name))
	return http.TimeoutHandler(handler, s.config.RequestHandlerTimeout, "Server Timeout!")
}
