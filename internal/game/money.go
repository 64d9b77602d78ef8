package game

import (
	"errors"
	"math"
)

const (
	MicrosPerCoin = int64(1_000_000)

	// Click value is displayed and stored at one-decimal precision.
	DeciCoinMicros = MicrosPerCoin / 10
)

var (
	ErrAssetNotFound   = errors.New("asset not found")
	ErrVentureNotFound = errors.New("venture not found")
	ErrUpgradeNotFound = errors.New("upgrade not found")
	ErrBoosterNotFound = errors.New("booster not found")
	ErrInvalidAction   = errors.New("invalid action")
	ErrNegativeBalance = errors.New("computed balance below zero")
)

func CoinsToMicros(v float64) int64 {
	return int64(math.Round(v * float64(MicrosPerCoin)))
}

func MicrosToCoins(v int64) float64 {
	return float64(v) / float64(MicrosPerCoin)
}

// floorToCoin truncates a micro amount down to a whole-coin boundary.
// Price formulas floor at coin granularity, never round.
func floorToCoin(micros float64) int64 {
	if micros <= 0 {
		return 0
	}
	return int64(math.Floor(micros/float64(MicrosPerCoin))) * MicrosPerCoin
}

// roundToDeciCoin rounds a micro amount to the nearest tenth of a coin.
func roundToDeciCoin(micros float64) int64 {
	if micros <= 0 {
		return 0
	}
	return int64(math.Round(micros/float64(DeciCoinMicros))) * DeciCoinMicros
}
