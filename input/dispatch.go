// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package input

import (
	"fmt"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/engine"
)

// add routes v to the engine method for its type. The switch is total over
// fhevm.ValueTypes.
func add(in engine.EncryptedInput, v fhevm.Value) error {
	switch v.Type {
	case fhevm.TypeBool:
		return in.AddBool(v.Bool())
	case fhevm.TypeUint8:
		return in.Add8(uint8(v.Uint64()))
	case fhevm.TypeUint16:
		return in.Add16(uint16(v.Uint64()))
	case fhevm.TypeUint32:
		return in.Add32(uint32(v.Uint64()))
	case fhevm.TypeUint64:
		return in.Add64(v.Uint64())
	case fhevm.TypeUint128:
		x := v.Int
		return in.Add128(&x)
	case fhevm.TypeUint256:
		x := v.Int
		return in.Add256(&x)
	case fhevm.TypeAddress:
		return in.AddAddress(v.Address())
	default:
		return fmt.Errorf("%w: %s", fhevm.ErrUnsupportedType, v.Type)
	}
}
