package orchestrator

import (
	"math"
	"math/rand/v2"
)

const (
	// LowConfidence accompanies apology responses.
	LowConfidence = 0.1

	minConfidence = 0.85
	maxConfidence = 1.0
)

// randomConfidence returns a cosmetic confidence in [0.85, 1.0], rounded to
// two decimals. It does not measure anything.
func randomConfidence() float64 {
	c := minConfidence + rand.Float64()*(maxConfidence-minConfidence)
	return math.Round(c*100) / 100
}
