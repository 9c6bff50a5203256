// Package amount converts between human decimal strings and the integer
// base units the contract works in. Scaling never goes through floats.
package amount

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MaxDecimals bounds the decimals accepted for any asset.
const MaxDecimals = 77

var decimalPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// Asset describes a pledge asset. A zero Token means the native chain asset.
type Asset struct {
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Token    common.Address `json:"token"`
}

// IsNative reports whether the asset is the chain's native currency.
func (a Asset) IsNative() bool {
	return a.Token == (common.Address{})
}

// USDC is the stablecoin the front-end offers next to the native asset.
var USDC = Asset{
	Symbol:   "USDC",
	Decimals: 6,
	Token:    common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
}

// Native returns the native asset for a network.
func Native(symbol string, decimals uint8) Asset {
	return Asset{Symbol: symbol, Decimals: decimals}
}

// Resolve returns the asset pledged in token. The zero address is native; an
// unknown token is assumed to use the native decimals.
func Resolve(token common.Address, native Asset) Asset {
	switch token {
	case common.Address{}:
		return native
	case USDC.Token:
		return USDC
	}
	return Asset{Symbol: "TOKEN", Decimals: native.Decimals, Token: token}
}

// ParseBaseUnits scales a decimal string into base units.
func ParseBaseUnits(s string, decimals uint8) (*big.Int, error) {
	if decimals > MaxDecimals {
		return nil, errs.New(errs.InvalidAmount, "unsupported decimals")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errs.New(errs.InvalidAmount, "amount is required")
	}
	if strings.HasPrefix(s, "-") {
		return nil, errs.New(errs.InvalidAmount, "amount must not be negative")
	}
	if !decimalPattern.MatchString(s) {
		return nil, errs.New(errs.InvalidAmount, "amount is not a number")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidAmount, err, "amount is not a number")
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, errs.New(errs.InvalidAmount, "too many decimal places")
	}
	return scaled.BigInt(), nil
}

// ToBaseUnits returns the base-unit integer for a decimal string, as a string.
func ToBaseUnits(s string, decimals uint8) (string, error) {
	v, err := ParseBaseUnits(s, decimals)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Positive is ParseBaseUnits that also rejects zero.
func Positive(s string, decimals uint8) (*big.Int, error) {
	v, err := ParseBaseUnits(s, decimals)
	if err != nil {
		return nil, err
	}
	if v.Sign() <= 0 {
		return nil, errs.New(errs.InvalidAmount, "amount must be greater than zero")
	}
	return v, nil
}

// ToDecimalString renders base units as a decimal string with at least one
// fractional digit, e.g. "1.0" or "0.25".
func ToDecimalString(baseUnits string, decimals uint8) (string, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(baseUnits), 10)
	if !ok {
		return "", errs.New(errs.InvalidAmount, "base units must be an integer")
	}
	return Format(v, decimals), nil
}

// Format renders v (base units) like ToDecimalString.
func Format(v *big.Int, decimals uint8) string {
	if v == nil {
		v = new(big.Int)
	}
	s := decimal.NewFromBigInt(v, -int32(decimals)).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// EstimateFiat returns the USD value of baseUnits at unitPrice, rounded to
// cents. A non-positive price means the price is unknown and yields "0.00".
func EstimateFiat(baseUnits string, unitPrice decimal.Decimal, decimals uint8) string {
	if !unitPrice.IsPositive() {
		return "0.00"
	}
	v, ok := new(big.Int).SetString(strings.TrimSpace(baseUnits), 10)
	if !ok {
		return "0.00"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).Mul(unitPrice).StringFixed(2)
}
