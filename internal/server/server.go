package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/nslisting/internal/auth"
	"github.com/danmuck/nslisting/internal/config"
	"github.com/danmuck/nslisting/internal/namespace"
	"github.com/danmuck/nslisting/internal/observability"
	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP front of a namespace Store.
type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	store     *namespace.Store
	limits    protocol.Limits
	certFile  string
	keyFile   string
	router    *gin.Engine
	writeAuth auth.Validator
}

func New(cfg config.ServerConfig, store *namespace.Store) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.ID))
	if len(cfg.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CorsOrigins,
			AllowMethods: []string{"GET", "PUT", "POST", "DELETE"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn().Err(err).Strs("trusted_proxies", cfg.TrustedProxies).Msg("trusted proxies rejected, forwarding headers ignored")
		r.ForwardedByClientIP = false
	}

	s := &Server{
		ID:       cfg.ID,
		Addr:     cfg.Addr,
		Appeared: time.Now(),
		store:    store,
		limits:   cfg.Limits.Protocol(),
		certFile: cfg.TLSCertFile,
		keyFile:  cfg.TLSKeyFile,
		router:   r,
	}
	if cfg.WriteToken != "" {
		s.writeAuth = auth.StaticToken{Token: cfg.WriteToken}
	}
	s.RegisterRoutes()
	return s
}

// requireWriteToken rejects mutating requests without the configured bearer
// token. With no token configured every request passes.
func (s *Server) requireWriteToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.writeAuth == nil {
			c.Next()
			return
		}
		token, _ := auth.BearerToken(c.GetHeader("Authorization"))
		if err := s.writeAuth.Validate(token); err != nil {
			log.Warn().Str("path", c.Request.URL.Path).Str("client_ip", c.ClientIP()).Msg("write rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on s.Addr until ctx is canceled, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln, over TLS when a cert and key are configured.
// It takes ownership of ln.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tlsOn := s.certFile != "" && s.keyFile != ""
	errCh := make(chan error, 1)
	go func() {
		if tlsOn {
			errCh <- srv.ServeTLS(ln, s.certFile, s.keyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("id", s.ID).Str("addr", ln.Addr().String()).Bool("tls", tlsOn).Msg("nsd listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
