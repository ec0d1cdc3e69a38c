package server

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/nslisting/internal/namespace"
	"github.com/danmuck/nslisting/internal/observability"
	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/protocols"
	"github.com/danmuck/nslisting/internal/protocol/schema"
	"github.com/danmuck/nslisting/internal/record"
	"github.com/danmuck/nslisting/internal/thriftgen"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const jsonProtocol = "json"

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.Appeared).String(),
			"service":   s.ID,
			"protocols": protocolContentTypes(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1/namespaces")
	v1.GET("/listing", s.handleList)
	v1.GET("/stat", s.handleStat)
	v1.PUT("/listing", s.requireWriteToken(), s.handlePut)
	v1.POST("/mkdir", s.requireWriteToken(), s.handleMkdir)
	v1.DELETE("/listing", s.requireWriteToken(), s.handleDelete)
}

func (s *Server) handleList(c *gin.Context) {
	ns := namespace.CleanPath(c.Query("ns"))
	listings, err := s.store.List(c.Request.Context(), ns)
	if err != nil {
		s.fail(c, err)
		return
	}

	f, ok := acceptedProtocol(c.GetHeader("Accept"))
	if !ok {
		observability.RecordEncode(jsonProtocol, len(listings))
		if listings == nil {
			listings = []*thriftgen.NamespaceListing{}
		}
		c.JSON(http.StatusOK, listings)
		return
	}

	var buf bytes.Buffer
	w := f.NewWriter(&buf)
	if err := thriftgen.WriteNamespaceListings(w, listings); err != nil {
		s.fail(c, err)
		return
	}
	if err := w.Flush(); err != nil {
		s.fail(c, err)
		return
	}
	observability.RecordEncode(f.Name(), len(listings))
	c.Data(http.StatusOK, f.ContentType(), buf.Bytes())
}

func (s *Server) handleStat(c *gin.Context) {
	l, err := s.store.Stat(c.Request.Context(), c.Query("path"))
	if err != nil {
		s.fail(c, err)
		return
	}
	f, ok := acceptedProtocol(c.GetHeader("Accept"))
	if !ok {
		c.JSON(http.StatusOK, l)
		return
	}
	b, err := record.Marshal(l, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	observability.RecordEncode(f.Name(), 1)
	c.Data(http.StatusOK, f.ContentType(), b)
}

func (s *Server) handlePut(c *gin.Context) {
	l, err := s.decodeBody(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	ns := namespace.CleanPath(c.Query("ns"))
	if err := s.store.Put(c.Request.Context(), ns, l); err != nil {
		s.fail(c, err)
		return
	}
	log.Info().Str("ns", ns).Str("listing", l.String()).Msg("listing stored")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "listing": l})
}

func (s *Server) handleMkdir(c *gin.Context) {
	path := namespace.CleanPath(c.Query("path"))
	if err := s.store.MkdirAll(c.Request.Context(), path); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "path": path})
}

func (s *Server) handleDelete(c *gin.Context) {
	ns := namespace.CleanPath(c.Query("ns"))
	name := c.Query("name")
	if err := s.store.Delete(c.Request.Context(), ns, name); err != nil {
		s.fail(c, err)
		return
	}
	log.Info().Str("ns", ns).Str("name", name).Msg("listing deleted")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// decodeBody reads one listing in the protocol named by Content-Type, or
// JSON when the type is not a registered protocol.
func (s *Server) decodeBody(c *gin.Context) (*thriftgen.NamespaceListing, error) {
	var l thriftgen.NamespaceListing
	f, ok := protocols.ForContentType(c.ContentType())
	if !ok {
		if err := c.ShouldBindJSON(&l); err != nil {
			observability.RecordDecode(jsonProtocol, err)
			return nil, &badRequestError{err: err}
		}
		err := l.Validate()
		observability.RecordDecode(jsonProtocol, err)
		if err != nil {
			return nil, err
		}
		return &l, nil
	}
	err := record.Decode(c.Request.Body, &l, f, s.limits)
	observability.RecordDecode(f.Name(), err)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// protocolContentTypes maps each registered protocol name to the media type
// clients negotiate it with.
func protocolContentTypes() map[string]string {
	out := make(map[string]string)
	for _, f := range protocols.All() {
		out[f.Name()] = f.ContentType()
	}
	return out
}

// acceptedProtocol picks the first Accept entry naming a registered protocol.
func acceptedProtocol(accept string) (protocol.Factory, bool) {
	for _, part := range strings.Split(accept, ",") {
		if f, ok := protocols.ForContentType(strings.TrimSpace(part)); ok {
			return f, true
		}
	}
	return nil, false
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func statusFor(err error) int {
	var bad *badRequestError
	switch {
	case errors.Is(err, namespace.ErrCorruptEntry):
		return http.StatusInternalServerError
	case errors.As(err, &bad),
		errors.Is(err, protocol.ErrMalformed),
		errors.Is(err, schema.ErrRequiredField),
		errors.Is(err, namespace.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, namespace.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, namespace.ErrExists),
		errors.Is(err, namespace.ErrNotEmpty),
		errors.Is(err, namespace.ErrNotNamespace):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
