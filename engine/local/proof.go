// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package local

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

// InputProof is the verifier's attestation that the handles were assigned
// to well-formed ciphertexts submitted by User for Contract.
type InputProof struct {
	ChainID   uint64
	Contract  common.Address
	User      common.Address
	Handles   []fhevm.Handle
	Signature []byte
}

// digest is the message the verifier signs.
func (p *InputProof) digest() []byte {
	var chain [8]byte
	binary.BigEndian.PutUint64(chain[:], p.ChainID)
	parts := [][]byte{chain[:], p.Contract.Bytes(), p.User.Bytes()}
	for _, h := range p.Handles {
		parts = append(parts, h.Bytes())
	}
	return common.Keccak256(parts...)
}

func (p *InputProof) sign(sk *bls.SecretKey) error {
	sig, err := sk.Sign(p.digest())
	if err != nil {
		return err
	}
	p.Signature = bls.SignatureToBytes(sig)
	return nil
}

// Verify checks the signature against the verifier key.
func (p *InputProof) Verify(pk *bls.PublicKey) error {
	sig, err := bls.SignatureFromBytes(p.Signature)
	if err != nil {
		return fmt.Errorf("%w: %w", engine.ErrInvalidProof, err)
	}
	if !bls.Verify(pk, sig, p.digest()) {
		return fmt.Errorf("%w: bad verifier signature", engine.ErrInvalidProof)
	}
	return nil
}

func (p *InputProof) Bytes() ([]byte, error) {
	return fhevm.Codec.Marshal(fhevm.CodecVersion, p)
}

func ParseInputProof(b []byte) (*InputProof, error) {
	p := new(InputProof)
	if _, err := fhevm.Codec.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrInvalidProof, err)
	}
	return p, nil
}
