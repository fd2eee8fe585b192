package services

import (
	"fmt"
	"math/big"

	"custody-engine/utility/appError"
	"custody-engine/utility/errorcode"

	"github.com/shopspring/decimal"
)

// ConvertToBaseUnits ... Converts a display denomination decimal string into
// the chain's smallest unit by decimal shift. "0.0001" at 8 decimals is
// exactly 10000; no float arithmetic is involved at any point.
func ConvertToBaseUnits(displayAmount string, decimals int32) (*big.Int, error) {
	value, err := decimal.NewFromString(displayAmount)
	if err != nil {
		return nil, appError.New(errorcode.INVALID_AMOUNT, fmt.Errorf("%s is not a decimal amount : %s", displayAmount, err))
	}
	if value.Sign() < 0 {
		return nil, appError.New(errorcode.INVALID_AMOUNT, fmt.Errorf("%s is negative", displayAmount))
	}
	shifted := value.Shift(decimals)
	if !shifted.Equal(shifted.Floor()) {
		return nil, appError.New(errorcode.INVALID_AMOUNT,
			fmt.Errorf("%s has more than %d decimal places", displayAmount, decimals))
	}
	return shifted.BigInt(), nil
}

// FormatFromBaseUnits ... Renders a base-unit amount as a display denomination
// decimal string, the inverse of ConvertToBaseUnits.
func FormatFromBaseUnits(baseAmount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(baseAmount, -decimals).String()
}
