// Package pricing decodes raw on-chain account data and vault balances
// into price, liquidity and market-cap figures, and tracks pool prices
// over time. The calculation functions are deterministic and
// side-effect free; chain access goes through the narrow reader
// interfaces the callers inject.
package pricing

import (
	"encoding/binary"
	"fmt"
)

// BondingCurveMarginOfError is the tolerated fraction by which an
// on-chain reserve figure may sit below an externally reported one
// before the cross-check flags a mismatch.
const BondingCurveMarginOfError = 0.01

// bondingCurveMinLen covers the 8-byte discriminator plus two i64 reserves.
const bondingCurveMinLen = 24

// BondingCurveReserves are the virtual reserves decoded from a bonding
// curve account.
type BondingCurveReserves struct {
	VirtualTokenReserves int64
	VirtualSOLReserves   int64
}

// DecodeBondingCurve reads the virtual token reserves at bytes [8,16)
// and the virtual SOL reserves at [16,24), both little-endian i64.
func DecodeBondingCurve(data []byte) (BondingCurveReserves, error) {
	if len(data) < bondingCurveMinLen {
		return BondingCurveReserves{}, fmt.Errorf("insufficient data to decode bonding curve info: %d bytes, want at least %d", len(data), bondingCurveMinLen)
	}
	return BondingCurveReserves{
		VirtualTokenReserves: int64(binary.LittleEndian.Uint64(data[8:16])),
		VirtualSOLReserves:   int64(binary.LittleEndian.Uint64(data[16:24])),
	}, nil
}

// WithinThreshold cross-checks decoded on-chain reserves against
// externally reported figures. It holds when each on-chain value is not
// more than BondingCurveMarginOfError below the reported one. A mismatch
// is advisory only; the on-chain value stays authoritative.
func (r BondingCurveReserves) WithinThreshold(reportedToken, reportedSOL int64) bool {
	return float64(r.VirtualSOLReserves)*(1.0-BondingCurveMarginOfError) < float64(reportedSOL) &&
		float64(r.VirtualTokenReserves)*(1.0-BondingCurveMarginOfError) < float64(reportedToken)
}
