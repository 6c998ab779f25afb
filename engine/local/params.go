// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package local implements the bundled engine: BGV encryption on the client
// and a single-process network that verifies inputs, keeps ciphertexts and
// serves user decryption through the gateway API.
package local

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"github.com/tuneinsight/lattigo/v5/schemes/bgv"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

const (
	// Each value occupies limbsPerValue consecutive slots holding 16 bits
	// each, least significant limb first. The plaintext modulus is 65537 so
	// every limb fits a slot.
	limbBits      = 16
	limbsPerValue = 256 / limbBits
	limbMask      = 1<<limbBits - 1

	// Inputs are encrypted at the lowest level. Nothing is evaluated on
	// them in this engine and the ciphertext is a twelfth of the size.
	inputLevel = 0
)

// DefaultParameters is a 128-bit secure BGV parameter set with a 16-bit
// plaintext modulus.
var DefaultParameters = bgv.ExampleParameters128BitLogN14LogQP438

// LoadParameters builds the BGV parameters. An empty path selects
// DefaultParameters, otherwise path holds a JSON ParametersLiteral.
func LoadParameters(path string) (bgv.Parameters, error) {
	lit := DefaultParameters
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return bgv.Parameters{}, fmt.Errorf("%w: %w", engine.ErrAllocation, err)
		}
		lit = bgv.ParametersLiteral{}
		if err := json.Unmarshal(b, &lit); err != nil {
			return bgv.Parameters{}, fmt.Errorf("%w: parse %s: %w", engine.ErrAllocation, path, err)
		}
	}
	params, err := bgv.NewParametersFromLiteral(lit)
	if err != nil {
		return bgv.Parameters{}, fmt.Errorf("%w: %w", engine.ErrAllocation, err)
	}
	if params.PlaintextModulus() <= limbMask {
		return bgv.Parameters{}, fmt.Errorf("%w: plaintext modulus %d cannot hold %d-bit limbs", engine.ErrAllocation, params.PlaintextModulus(), limbBits)
	}
	if params.MaxSlots() < fhevm.MaxInputValues*limbsPerValue {
		return bgv.Parameters{}, fmt.Errorf("%w: %d slots cannot hold %d values", engine.ErrAllocation, params.MaxSlots(), fhevm.MaxInputValues)
	}
	return params, nil
}

// packValues lays values out in slot order.
func packValues(values []fhevm.Value, slots int) ([]uint64, error) {
	if len(values)*limbsPerValue > slots {
		return nil, fmt.Errorf("%w: %d values", fhevm.ErrInputTooLarge, len(values))
	}
	out := make([]uint64, slots)
	for i, v := range values {
		word := v.Int
		for j := 0; j < limbsPerValue; j++ {
			out[i*limbsPerValue+j] = word.Uint64() & limbMask
			word.Rsh(&word, limbBits)
		}
	}
	return out, nil
}

// unpackValue reads the value at index and checks that it fits t.
func unpackValue(slots []uint64, index int, t fhevm.ValueType) (fhevm.Value, error) {
	start := index * limbsPerValue
	if start+limbsPerValue > len(slots) {
		return fhevm.Value{}, fmt.Errorf("%w: index %d out of range", engine.ErrInvalidProof, index)
	}
	v := fhevm.Value{Type: t}
	var limb uint256.Int
	for j := limbsPerValue - 1; j >= 0; j-- {
		s := slots[start+j]
		if s > limbMask {
			return fhevm.Value{}, fmt.Errorf("%w: limb %d of value %d overflows", engine.ErrInvalidProof, j, index)
		}
		v.Int.Lsh(&v.Int, limbBits)
		v.Int.Or(&v.Int, limb.SetUint64(s))
	}
	if err := v.Validate(); err != nil {
		return fhevm.Value{}, fmt.Errorf("%w: value %d: %w", engine.ErrInvalidProof, index, err)
	}
	return v, nil
}
