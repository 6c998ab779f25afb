// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package reencrypt

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/log"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

// Decryptor turns handles into cleartexts using re-encryption keys.
type Decryptor struct {
	log      log.Logger
	sessions Sessions
}

func NewDecryptor(logger log.Logger, sessions Sessions) *Decryptor {
	return &Decryptor{
		log:      logger,
		sessions: sessions,
	}
}

// Decrypt consumes key and returns the cleartext behind handle. The key is
// consumed even when decryption fails.
func (d *Decryptor) Decrypt(ctx context.Context, handle fhevm.Handle, key *Key) (fhevm.ClearValue, error) {
	h, err := d.sessions.Get()
	if err != nil {
		return fhevm.ClearValue{}, fmt.Errorf("%w: %w", fhevm.ErrSessionNotReady, err)
	}
	if key == nil {
		return fhevm.ClearValue{}, fmt.Errorf("%w: no key", fhevm.ErrDecryptionAuthorization)
	}
	kp, ok := key.consume()
	if !ok {
		return fhevm.ClearValue{}, fmt.Errorf("%w: key %s already used", fhevm.ErrDecryptionAuthorization, key.id)
	}
	defer clear(kp.PrivateKey)

	if key.sessionID != h.ID() {
		return fhevm.ClearValue{}, fmt.Errorf("%w: key issued for session %s", fhevm.ErrDecryptionAuthorization, key.sessionID)
	}
	if key.chainID != h.ChainID() || handle.ChainID() != h.ChainID() {
		return fhevm.ClearValue{}, fmt.Errorf(
			"%w: handle for chain %d, key for chain %d, session on chain %d",
			fhevm.ErrDecryptionAuthorization, handle.ChainID(), key.chainID, h.ChainID(),
		)
	}
	if !handle.Type().Valid() {
		return fhevm.ClearValue{}, fmt.Errorf("%w: handle type %d", fhevm.ErrUnsupportedType, uint8(handle.Type()))
	}
	signer, err := key.authorization().RecoverSigner(key.signature)
	if err != nil || signer != key.user {
		return fhevm.ClearValue{}, fmt.Errorf("%w: authorization not signed by %s", fhevm.ErrDecryptionAuthorization, key.user)
	}

	clearInt, err := h.Instance().Reencrypt(ctx, &engine.ReencryptRequest{
		Handle:    handle,
		Keypair:   kp,
		Signature: key.signature,
		Contract:  key.contract,
		User:      key.user,
	})
	if err != nil {
		if errors.Is(err, engine.ErrUnauthorized) || errors.Is(err, engine.ErrUnknownHandle) {
			err = fmt.Errorf("%w: %w", fhevm.ErrDecryptionAuthorization, err)
		}
		d.log.Debug("re-encryption failed",
			log.Stringer("handle", handle),
			log.Err(err),
		)
		return fhevm.ClearValue{}, err
	}

	v := fhevm.ClearValue{Type: handle.Type(), Int: *clearInt}
	if err := v.Validate(); err != nil {
		return fhevm.ClearValue{}, fmt.Errorf("decrypted value does not fit %s: %w", handle.Type(), err)
	}
	return v, nil
}
