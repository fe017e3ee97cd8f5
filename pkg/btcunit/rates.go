// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcunit provides the size and fee rate units used when modelling
// transaction fees.
package btcunit

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	// kilo is a generic multiplier for kilo units.
	kilo = 1000

	// floatStringPrecision is the number of decimal places used when a
	// fee rate is rendered. Three places keep rates such as 0.001 sat/vb
	// from collapsing to zero.
	floatStringPrecision = 3
)

var (
	// ErrInvalidFeeRate is returned when a fee rate is negative, not a
	// number or otherwise unusable.
	ErrInvalidFeeRate = errors.New("invalid fee rate")

	// ZeroSatPerVByte is a fee rate of 0 sat/vb.
	ZeroSatPerVByte = NewSatPerVByte(0)
)

// SatPerVByte is a fee rate in satoshis per virtual byte. The rate is kept as
// an exact rational so that fractional rates reported by fee estimators (for
// example 1.5 sat/vb) survive without rounding until a fee is computed.
type SatPerVByte struct {
	rate *big.Rat
}

// NewSatPerVByte creates a whole-number fee rate in sat/vb.
func NewSatPerVByte(rate btcutil.Amount) SatPerVByte {
	return SatPerVByte{rate: big.NewRat(int64(rate), 1)}
}

// CalcSatPerVByte returns the fee rate paid by a transaction of the given
// virtual size carrying the given fee. A zero size yields a zero rate.
func CalcSatPerVByte(fee btcutil.Amount, size VByte) SatPerVByte {
	if size.vb == 0 {
		return ZeroSatPerVByte
	}

	return SatPerVByte{rate: big.NewRat(
		int64(fee), safeUint64ToInt64(size.vb),
	)}
}

// ParseSatPerVByte converts a floating point rate, as returned by the public
// fee estimation APIs, into a SatPerVByte.
func ParseSatPerVByte(rate float64) (SatPerVByte, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return ZeroSatPerVByte, fmt.Errorf("%w: %v", ErrInvalidFeeRate,
			rate)
	}

	r := new(big.Rat)
	if r.SetFloat64(rate) == nil {
		return ZeroSatPerVByte, fmt.Errorf("%w: %v", ErrInvalidFeeRate,
			rate)
	}

	return SatPerVByte{rate: r}, nil
}

// rat returns the underlying rational, treating the zero value as 0.
func (s SatPerVByte) rat() *big.Rat {
	if s.rate == nil {
		return new(big.Rat)
	}

	return s.rate
}

// FeeForVByte returns the fee for the given virtual size, rounded down.
func (s SatPerVByte) FeeForVByte(size VByte) btcutil.Amount {
	fee := s.mul(size)

	quotient := new(big.Int).Quo(fee.Num(), fee.Denom())

	return btcutil.Amount(quotient.Int64())
}

// FeeForVByteRoundUp returns the fee for the given virtual size, rounded up
// to the next whole satoshi. This is the rounding used for every fee the
// wallet pays, so a fractional rate never underpays.
func (s SatPerVByte) FeeForVByteRoundUp(size VByte) btcutil.Amount {
	fee := s.mul(size)

	// Ceiling division: (num + denom - 1) / denom.
	result := new(big.Int).Add(fee.Num(), fee.Denom())
	result.Sub(result, big.NewInt(1))
	result.Quo(result, fee.Denom())

	return btcutil.Amount(result.Int64())
}

// FeeForWeightRoundUp returns the fee for the given weight, rounded up.
func (s SatPerVByte) FeeForWeightRoundUp(weight WeightUnit) btcutil.Amount {
	return s.FeeForVByteRoundUp(weight.ToVB())
}

// mul returns rate * size as an exact rational.
func (s SatPerVByte) mul(size VByte) *big.Rat {
	return new(big.Rat).Mul(
		s.rat(), big.NewRat(safeUint64ToInt64(size.vb), 1),
	)
}

// ToSatPerKVByte converts the rate to sat/kvb.
func (s SatPerVByte) ToSatPerKVByte() SatPerKVByte {
	return SatPerKVByte{rate: new(big.Rat).Mul(
		s.rat(), big.NewRat(kilo, 1),
	)}
}

// IsZero returns true if the rate is zero.
func (s SatPerVByte) IsZero() bool {
	return s.rat().Sign() == 0
}

// IsPositive returns true if the rate is strictly positive.
func (s SatPerVByte) IsPositive() bool {
	return s.rat().Sign() > 0
}

// Equal returns true if the fee rate is equal to the other fee rate.
func (s SatPerVByte) Equal(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) == 0
}

// GreaterThan returns true if the fee rate is greater than the other fee rate.
func (s SatPerVByte) GreaterThan(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) > 0
}

// LessThan returns true if the fee rate is less than the other fee rate.
func (s SatPerVByte) LessThan(other SatPerVByte) bool {
	return s.rat().Cmp(other.rat()) < 0
}

// String returns a human-readable string of the fee rate.
func (s SatPerVByte) String() string {
	return s.rat().FloatString(floatStringPrecision) + " sat/vb"
}

// SatPerKVByte is a fee rate in satoshis per kilo virtual byte, the unit the
// relay policy helpers are expressed in.
type SatPerKVByte struct {
	rate *big.Rat
}

// NewSatPerKVByte creates a new fee rate in sat/kvb.
func NewSatPerKVByte(rate btcutil.Amount) SatPerKVByte {
	return SatPerKVByte{rate: big.NewRat(int64(rate), 1)}
}

// Amount returns the rate as a whole number of satoshis per kvb, rounded
// down, which is the form txrules expects.
func (s SatPerKVByte) Amount() btcutil.Amount {
	if s.rate == nil {
		return 0
	}

	quotient := new(big.Int).Quo(s.rate.Num(), s.rate.Denom())

	return btcutil.Amount(quotient.Int64())
}

// ToSatPerVByte converts the rate to sat/vb.
func (s SatPerKVByte) ToSatPerVByte() SatPerVByte {
	r := new(big.Rat)
	if s.rate != nil {
		r.Mul(s.rate, big.NewRat(1, kilo))
	}

	return SatPerVByte{rate: r}
}

// String returns a human-readable string of the fee rate.
func (s SatPerKVByte) String() string {
	r := s.rate
	if r == nil {
		r = new(big.Rat)
	}

	return r.FloatString(floatStringPrecision) + " sat/kvb"
}

// FeeRates is a snapshot of the recommended fee rates reported by a fee
// estimator. Regular targets confirmation within a few blocks, Priority the
// next block. Min and Max bound what the estimator considers sane.
type FeeRates struct {
	Regular  SatPerVByte
	Priority SatPerVByte
	Min      SatPerVByte
	Max      SatPerVByte
}

// Validate checks that the snapshot is internally consistent.
func (f *FeeRates) Validate() error {
	if !f.Regular.IsPositive() {
		return fmt.Errorf("%w: regular rate %v", ErrInvalidFeeRate,
			f.Regular)
	}

	if f.Priority.LessThan(f.Regular) {
		return fmt.Errorf("%w: priority rate %v below regular %v",
			ErrInvalidFeeRate, f.Priority, f.Regular)
	}

	if !f.Max.IsZero() && f.Max.LessThan(f.Min) {
		return fmt.Errorf("%w: max rate %v below min %v",
			ErrInvalidFeeRate, f.Max, f.Min)
	}

	return nil
}

// safeUint64ToInt64 converts a uint64 to an int64, capping at math.MaxInt64.
// Sizes handled here are bounded by consensus and never get near the cap.
func safeUint64ToInt64(u uint64) int64 {
	if u > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(u)
}
