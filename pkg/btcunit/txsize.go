// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcunit

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
)

// WeightUnit expresses a transaction size in weight units. The weight of a
// transaction is `base size * 3 + total size`, where the base size excludes
// the witness data and the total size is the BIP144 serialization.
type WeightUnit struct {
	wu uint64
}

// NewWeightUnit creates a new WeightUnit from a raw weight.
func NewWeightUnit(val uint64) WeightUnit {
	return WeightUnit{wu: val}
}

// Val returns the raw weight.
func (w WeightUnit) Val() uint64 {
	return w.wu
}

// ToVB converts the weight to virtual bytes, rounding up to the next whole
// vbyte as the relay policy does.
func (w WeightUnit) ToVB() VByte {
	vb := (w.wu + blockchain.WitnessScaleFactor - 1) /
		blockchain.WitnessScaleFactor

	return NewVByte(vb)
}

// String returns the string representation of the weight unit.
func (w WeightUnit) String() string {
	return fmt.Sprintf("%d wu", w.wu)
}

// VByte expresses a transaction size in virtual bytes. One virtual byte is
// four weight units. All fee figures in this module are quoted per vbyte.
type VByte struct {
	vb uint64
}

// NewVByte creates a new VByte from a whole number of virtual bytes.
func NewVByte(val uint64) VByte {
	return VByte{vb: val}
}

// Val returns the size in whole virtual bytes.
func (v VByte) Val() uint64 {
	return v.vb
}

// ToWU converts the virtual size to weight units.
func (v VByte) ToWU() WeightUnit {
	return NewWeightUnit(v.vb * blockchain.WitnessScaleFactor)
}

// Add returns the sum of two virtual sizes.
func (v VByte) Add(other VByte) VByte {
	return NewVByte(v.vb + other.vb)
}

// Sub returns v - other, floored at zero.
func (v VByte) Sub(other VByte) VByte {
	if other.vb >= v.vb {
		return VByte{}
	}

	return NewVByte(v.vb - other.vb)
}

// String returns the string representation of the virtual byte.
func (v VByte) String() string {
	return fmt.Sprintf("%d vb", v.vb)
}
