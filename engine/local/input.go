// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package local

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
	"github.com/luxfi/fhevm/gateway"
)

var _ engine.EncryptedInput = (*Input)(nil)

// Input collects cleartexts for one contract call. Encrypt packs them into a
// single ciphertext and has the network attest to it.
type Input struct {
	instance *Instance
	contract common.Address
	user     common.Address

	values []fhevm.Value
	bits   int
}

func (in *Input) add(t fhevm.ValueType, raw any) error {
	v, err := fhevm.NewValue(t, raw)
	if err != nil {
		return err
	}
	if len(in.values)+1 > fhevm.MaxInputValues {
		return fmt.Errorf("%w: more than %d values", fhevm.ErrInputTooLarge, fhevm.MaxInputValues)
	}
	if in.bits+t.Bits() > fhevm.MaxInputBits {
		return fmt.Errorf("%w: more than %d bits", fhevm.ErrInputTooLarge, fhevm.MaxInputBits)
	}
	in.values = append(in.values, v)
	in.bits += t.Bits()
	return nil
}

func (in *Input) AddBool(v bool) error {
	return in.add(fhevm.TypeBool, v)
}

func (in *Input) Add8(v uint8) error {
	return in.add(fhevm.TypeUint8, v)
}

func (in *Input) Add16(v uint16) error {
	return in.add(fhevm.TypeUint16, v)
}

func (in *Input) Add32(v uint32) error {
	return in.add(fhevm.TypeUint32, v)
}

func (in *Input) Add64(v uint64) error {
	return in.add(fhevm.TypeUint64, v)
}

func (in *Input) Add128(v *uint256.Int) error {
	return in.add(fhevm.TypeUint128, v)
}

func (in *Input) Add256(v *uint256.Int) error {
	return in.add(fhevm.TypeUint256, v)
}

func (in *Input) AddAddress(v common.Address) error {
	return in.add(fhevm.TypeAddress, v)
}

// Encrypt submits the input and checks the returned proof against the
// verifier key the gateway advertises.
func (in *Input) Encrypt(ctx context.Context) (*fhevm.SealedPayload, error) {
	if len(in.values) == 0 {
		return nil, fhevm.ErrEmptyInput
	}
	ct, err := in.instance.encrypt(in.values)
	if err != nil {
		return nil, err
	}

	types := make([]fhevm.ValueType, len(in.values))
	for i, v := range in.values {
		types[i] = v.Type
	}
	res, err := in.instance.client.InputProof(ctx, &gateway.InputProofRequest{
		ContractChainID: in.instance.chainID,
		ContractAddress: in.contract,
		UserAddress:     in.user,
		Types:           types,
		Ciphertext:      ct,
	})
	if err != nil {
		return nil, err
	}
	if err := in.checkProof(ctx, types, res); err != nil {
		return nil, err
	}

	in.instance.log.Debug(
		"Encrypted input",
		log.Int("values", len(types)),
		log.Int("ciphertextBytes", len(ct)),
		log.Stringer("contract", in.contract),
	)
	return &fhevm.SealedPayload{
		Handles: res.Handles,
		Proof:   res.Proof,
	}, nil
}

func (in *Input) checkProof(ctx context.Context, types []fhevm.ValueType, res *gateway.InputProofResult) error {
	if len(res.Handles) != len(types) {
		return fmt.Errorf("%w: %d handles for %d values", engine.ErrInvalidProof, len(res.Handles), len(types))
	}
	proof, err := ParseInputProof(res.Proof)
	if err != nil {
		return err
	}
	if proof.ChainID != in.instance.chainID || proof.Contract != in.contract || proof.User != in.user {
		return fmt.Errorf("%w: proof is bound to another call", engine.ErrInvalidProof)
	}
	if len(proof.Handles) != len(res.Handles) {
		return fmt.Errorf("%w: proof covers %d handles", engine.ErrInvalidProof, len(proof.Handles))
	}
	for i, h := range res.Handles {
		if h != proof.Handles[i] || h.Type() != types[i] || h.Index() != uint8(i) || h.ChainID() != in.instance.chainID {
			return fmt.Errorf("%w: handle %d does not match the input", engine.ErrInvalidProof, i)
		}
	}
	vk, err := in.instance.verifierKey(ctx)
	if err != nil {
		return err
	}
	return proof.Verify(vk)
}
