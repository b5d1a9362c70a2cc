// Package api exposes the codec over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"axine-go/pkg/codec"
	"axine-go/pkg/config"
	"axine-go/pkg/key"
	"axine-go/pkg/log"
	"axine-go/pkg/padding"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	HeaderKey            = "X-Axine-Key"
	HeaderKeyFingerprint = "X-Axine-Key-Fingerprint"

	bodyLimit       = "64M"
	shutdownTimeout = 5 * time.Second
)

type KeyResponse struct {
	Key         key.Key `json:"key"`
	Fingerprint string  `json:"fingerprint"`
}

type Server struct {
	Api *echo.Echo

	addr       string
	defaultKey key.Key
	codecOpts  []codec.Option

	encrypted atomic.Int64
	decrypted atomic.Int64
	rejected  atomic.Int64
}

// Stats counts successful encrypt and decrypt requests and rejected ciphertexts.
type Stats struct {
	Encrypted int64 `json:"encrypted"`
	Decrypted int64 `json:"decrypted"`
	Rejected  int64 `json:"rejected"`
}

func (s *Server) Stats() Stats {
	return Stats{
		Encrypted: s.encrypted.Load(),
		Decrypted: s.decrypted.Load(),
		Rejected:  s.rejected.Load(),
	}
}

// New builds the server. k is used by /v1/encrypt when the request names no
// key; with k == 0 every such request gets a fresh key.
func New(cfg *config.Config, k key.Key) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		Api:        e,
		addr:       cfg.APIListenAddr,
		defaultKey: k,
		codecOpts:  cfg.CodecOptions(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("elapsed", v.Latency).
				Msg("api request")
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(bodyLimit))

	v1 := e.Group("/v1")
	v1.POST("/encrypt", s.Encrypt)
	v1.POST("/decrypt", s.Decrypt)
	v1.GET("/key", s.GetKey)
	return s
}

// Handler is the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.Api }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("api listening")
		errCh <- s.Api.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Api.Shutdown(sctx); err != nil {
		return err
	}
	return nil
}

// requestKey reads X-Axine-Key. ok is false when the header is absent.
func requestKey(c echo.Context) (k key.Key, ok bool, err error) {
	h := c.Request().Header.Get(HeaderKey)
	if h == "" {
		return 0, false, nil
	}
	k, err = key.Parse(h)
	if err != nil {
		return 0, true, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return k, true, nil
}

func readBody(c echo.Context) ([]byte, error) {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "cannot read request body").SetInternal(err)
	}
	return data, nil
}

func setKeyHeaders(c echo.Context, k key.Key) {
	h := c.Response().Header()
	h.Set(HeaderKey, k.String())
	h.Set(HeaderKeyFingerprint, k.Fingerprint())
}

// Encrypt answers POST /v1/encrypt.
func (s *Server) Encrypt(c echo.Context) error {
	k, ok, err := requestKey(c)
	if err != nil {
		return err
	}
	if !ok {
		k = s.defaultKey
		if k == 0 {
			if k, err = key.Generate(); err != nil {
				return err
			}
		}
	}
	data, err := readBody(c)
	if err != nil {
		return err
	}

	out := codec.New(k, s.codecOpts...).EncryptStream(data)
	log.Debug().Str("key_fp", k.Fingerprint()).Msgf("api encrypted %s", humanize.Bytes(uint64(len(data))))
	s.encrypted.Add(1)
	setKeyHeaders(c, k)
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, out)
}

// Decrypt answers POST /v1/decrypt. The key header is mandatory.
func (s *Server) Decrypt(c echo.Context) error {
	k, ok, err := requestKey(c)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "missing "+HeaderKey+" header")
	}
	data, err := readBody(c)
	if err != nil {
		return err
	}

	out, err := codec.New(k, s.codecOpts...).DecryptStream(data)
	if err != nil {
		if errors.Is(err, codec.ErrInvalidLength) || errors.Is(err, padding.ErrInvalidPadding) {
			s.rejected.Add(1)
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error()).SetInternal(err)
		}
		return err
	}
	s.decrypted.Add(1)
	setKeyHeaders(c, k)
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, out)
}

// GetKey answers GET /v1/key with a freshly generated key.
func (s *Server) GetKey(c echo.Context) error {
	k, err := key.Generate()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, KeyResponse{Key: k, Fingerprint: k.Fingerprint()})
}
