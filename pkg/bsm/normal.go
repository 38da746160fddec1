package bsm

import "gonum.org/v1/gonum/stat/distuv"

// N is the standard normal cumulative distribution function Φ.
func N(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// Phi is the standard normal density φ.
func Phi(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}
