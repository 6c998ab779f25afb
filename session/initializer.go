// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"

	"github.com/luxfi/log"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

const (
	CandidatePreloaded = "preloaded"
	CandidateBundled   = "bundled"
	candidateGateway   = "gateway"
)

var _ Builder = (*Initializer)(nil)

// PublicKeyFetcher resolves the network public key from a gateway.
type PublicKeyFetcher interface {
	FetchPublicKey(ctx context.Context, gatewayURL string) ([]byte, error)
}

// Option configures an Initializer.
type Option func(*Initializer)

// WithInitOptions sets the asset paths handed to Engine.Init.
func WithInitOptions(opts engine.InitOptions) Option {
	return func(i *Initializer) {
		i.initOpts = opts
	}
}

// WithPreloaded replaces the lookup of the preloaded engine. The default is
// engine.Preloaded.
func WithPreloaded(lookup func() (engine.Engine, bool)) Option {
	return func(i *Initializer) {
		i.preloaded = lookup
	}
}

// WithPublicKeyFetcher makes the initializer fetch the network public key
// when the configuration omits it.
func WithPublicKeyFetcher(f PublicKeyFetcher) Option {
	return func(i *Initializer) {
		i.keys = f
	}
}

// Initializer builds session handles. It tries the preloaded engine first
// and the bundled engine second.
type Initializer struct {
	log       log.Logger
	bundled   engine.Engine
	preloaded func() (engine.Engine, bool)
	initOpts  engine.InitOptions
	keys      PublicKeyFetcher
}

func NewInitializer(logger log.Logger, bundled engine.Engine, opts ...Option) *Initializer {
	i := &Initializer{
		log:       logger,
		bundled:   bundled,
		preloaded: engine.Preloaded,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type candidate struct {
	name   string
	engine engine.Engine
}

func (i *Initializer) candidates() []candidate {
	var cs []candidate
	if e, ok := i.preloaded(); ok {
		cs = append(cs, candidate{name: CandidatePreloaded, engine: e})
	}
	if i.bundled != nil && (len(cs) == 0 || cs[0].engine != i.bundled) {
		cs = append(cs, candidate{name: CandidateBundled, engine: i.bundled})
	}
	return cs
}

// Build resolves an engine and creates an instance for cfg. Every failure is
// an *fhevm.EngineInitError listing each candidate that was tried, except
// for configuration errors which are reported as fhevm.ErrInvalidConfig.
func (i *Initializer) Build(ctx context.Context, cfg fhevm.Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	icfg := engine.InstanceConfig{
		ChainID:    cfg.ChainID,
		PublicKey:  cfg.PublicKey,
		GatewayURL: cfg.GatewayURL,
		Network:    cfg.NetworkURL,
	}
	if len(icfg.PublicKey) == 0 && i.keys != nil {
		pk, err := i.keys.FetchPublicKey(ctx, cfg.GatewayURL)
		if err != nil {
			if !errors.Is(err, engine.ErrPublicKeyFetch) {
				err = fmt.Errorf("%w: %w", engine.ErrPublicKeyFetch, err)
			}
			return nil, i.fail([]fhevm.InitAttempt{i.attempt(candidateGateway, err)})
		}
		icfg.PublicKey = pk
	}

	var attempts []fhevm.InitAttempt
	for _, c := range i.candidates() {
		inst, err := i.try(ctx, c.engine, icfg)
		if err == nil {
			return newHandle(cfg, c.engine.Name(), inst), nil
		}
		attempts = append(attempts, i.attempt(c.name, err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, i.fail(attempts)
}

func (i *Initializer) try(ctx context.Context, e engine.Engine, cfg engine.InstanceConfig) (engine.Instance, error) {
	if err := e.Init(ctx, i.initOpts); err != nil {
		return nil, fmt.Errorf("init %s: %w", e.Name(), err)
	}
	inst, err := e.CreateInstance(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create instance with %s: %w", e.Name(), err)
	}
	return inst, nil
}

func (i *Initializer) attempt(name string, err error) fhevm.InitAttempt {
	a := fhevm.InitAttempt{
		Candidate: name,
		Failure:   Classify(err),
		Err:       err,
	}
	i.log.Warn(
		"engine candidate failed",
		log.String("candidate", name),
		log.Stringer("failure", a.Failure),
		log.Err(err),
	)
	return a
}

func (i *Initializer) fail(attempts []fhevm.InitAttempt) error {
	err := &fhevm.EngineInitError{Attempts: attempts}
	i.log.Error("failed to initialize fhevm session", log.Err(err))
	return err
}

// Classify maps an engine error onto a failure class with a remediation hint.
func Classify(err error) fhevm.InitFailure {
	var (
		netErr net.Error
		urlErr *url.Error
	)
	switch {
	case errors.Is(err, engine.ErrPublicKeyFetch):
		return fhevm.FailurePublicKeyFetch
	case errors.Is(err, engine.ErrAllocation):
		return fhevm.FailureAllocation
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &netErr),
		errors.As(err, &urlErr):
		return fhevm.FailureNetwork
	default:
		return fhevm.FailureUnknown
	}
}
