// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package reencrypt

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/session"
	"github.com/luxfi/fhevm/signer"
)

// Sessions provides the current session handle.
type Sessions interface {
	Get() (*session.Handle, error)
}

// Generator creates re-encryption keys.
type Generator struct {
	log      log.Logger
	sessions Sessions
}

func NewGenerator(logger log.Logger, sessions Sessions) *Generator {
	return &Generator{
		log:      logger,
		sessions: sessions,
	}
}

// GenerateKey creates an ephemeral keypair and has s sign an authorization
// binding it to contract. The key can only decrypt handles that user is
// allowed to read on contract.
func (g *Generator) GenerateKey(ctx context.Context, contract, user common.Address, s signer.Signer) (*Key, error) {
	h, err := g.sessions.Get()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fhevm.ErrSessionNotReady, err)
	}

	kp, err := h.Instance().GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	key := &Key{
		id:        uuid.New(),
		sessionID: h.ID(),
		chainID:   h.ChainID(),
		contract:  contract,
		user:      user,
		signer:    s.Address(),
		keypair:   *kp,
	}

	sig, err := s.SignTypedData(ctx, key.authorization())
	if err != nil {
		err = signer.Classify(err)
		g.log.Debug("authorization not signed",
			log.Stringer("contract", contract),
			log.Stringer("user", user),
			log.Err(err),
		)
		return nil, err
	}
	key.signature = sig
	return key, nil
}
