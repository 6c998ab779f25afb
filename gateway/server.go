// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/luxfi/log"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

const maxRequestSize = 32 << 20

// Backend serves the gateway API.
type Backend interface {
	KeyInfo(ctx context.Context) (*KeyURLResult, error)
	PublicKey(ctx context.Context) ([]byte, error)
	VerifyInput(ctx context.Context, req *InputProofRequest) (*InputProofResult, error)
	UserDecrypt(ctx context.Context, req *UserDecryptRequest) (*UserDecryptResult, error)
	HealthCheck(ctx context.Context) error
}

// NewHandler returns the gateway HTTP API for backend.
func NewHandler(logger log.Logger, metrics *Metrics, backend Backend) http.Handler {
	s := &server{
		log:     logger,
		metrics: metrics,
		backend: backend,
	}

	checker := health.NewChecker(
		health.WithDisabledCache(),
		health.WithCheck(health.Check{
			Name:  "fhevm-gateway",
			Check: backend.HealthCheck,
		}),
	)

	mux := http.NewServeMux()
	mux.Handle("GET "+KeyURLPath, s.instrument(KeyURLPath, s.handleKeyURL))
	mux.Handle("GET "+PublicKeyPath, s.instrument(PublicKeyPath, s.handlePublicKey))
	mux.Handle("POST "+InputProofPath, s.instrument(InputProofPath, s.handleInputProof))
	mux.Handle("POST "+UserDecryptPath, s.instrument(UserDecryptPath, s.handleUserDecrypt))
	mux.Handle(HealthPath, health.NewHandler(checker))
	return mux
}

type server struct {
	log     log.Logger
	metrics *Metrics
	backend Backend
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) instrument(path string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.observe(path, rec.status, time.Since(start))
	})
}

func (s *server) handleKeyURL(w http.ResponseWriter, r *http.Request) {
	info, err := s.backend.KeyInfo(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, Envelope[*KeyURLResult]{Status: StatusSucceeded, Response: info})
}

func (s *server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	pk, err := s.backend.PublicKey(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(pk); err != nil {
		s.log.Debug("Error writing public key", log.Err(err))
	}
}

func (s *server) handleInputProof(w http.ResponseWriter, r *http.Request) {
	var req InputProofRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.backend.VerifyInput(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, Envelope[*InputProofResult]{Status: StatusSucceeded, Response: res})
}

func (s *server) handleUserDecrypt(w http.ResponseWriter, r *http.Request) {
	var req UserDecryptRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.backend.UserDecrypt(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, Envelope[*UserDecryptResult]{Status: StatusSucceeded, Response: res})
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize)).Decode(v); err != nil {
		msg := "Could not decode request body"
		s.log.Warn(msg, log.Err(err))
		s.writeJSONError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		code = http.StatusForbidden
	case errors.Is(err, engine.ErrUnknownHandle):
		code = http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidProof),
		errors.Is(err, fhevm.ErrValueOutOfRange),
		errors.Is(err, fhevm.ErrUnsupportedType),
		errors.Is(err, fhevm.ErrInputTooLarge),
		errors.Is(err, fhevm.ErrEmptyInput):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		s.log.Error("Gateway request failed", log.Err(err))
	} else {
		s.log.Debug("Gateway request rejected", log.Int("status", code), log.Err(err))
	}
	s.writeJSONError(w, code, err.Error())
}

func (s *server) writeJSONError(w http.ResponseWriter, code int, msg string) {
	resp, err := json.Marshal(ErrorResponse{Status: StatusFailed, Error: msg})
	if err != nil {
		msg := "Error marshalling JSON error response"
		s.log.Error(msg, log.Err(err))
		resp = []byte(msg)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(resp); err != nil {
		s.log.Error("Error writing error response", log.Err(err))
	}
}

func (s *server) writeJSON(w http.ResponseWriter, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Error marshalling JSON response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		s.log.Error("Error writing response", log.Err(err))
	}
}
