package normalize

import "math"

// Upstream feeds sometimes send money in centavos and areas in square centimetres.
// Values above these thresholds are implausible in reais / square metres and are scaled down.
const (
	MoneyMinorUnitScale = 100
	// SalePriceMinorUnitThreshold: no listing on the site is priced above R$ 100 million.
	SalePriceMinorUnitThreshold = 100_000_000
	// RecurringChargeMinorUnitThreshold applies to rent, condo fee and IPTU.
	RecurringChargeMinorUnitThreshold = 1_000_000

	AreaCentimetreScale     = 100
	AreaCentimetreThreshold = 10_000
)

// SalePrice corrects a sale price that arrived in minor units.
func SalePrice(v *float64) *float64 {
	return scaleAbove(v, SalePriceMinorUnitThreshold, MoneyMinorUnitScale)
}

// RecurringCharge corrects a monthly or yearly charge that arrived in minor units.
func RecurringCharge(v *float64) *float64 {
	return scaleAbove(v, RecurringChargeMinorUnitThreshold, MoneyMinorUnitScale)
}

// BuiltArea corrects a built or private area that arrived in square centimetres.
// Land areas are not passed through here; large plots legitimately exceed the threshold.
func BuiltArea(v *float64) *float64 {
	return scaleAbove(v, AreaCentimetreThreshold, AreaCentimetreScale)
}

func scaleAbove(v *float64, threshold, scale float64) *float64 {
	if v == nil || !valid(*v) {
		return nil
	}
	out := *v
	if out > threshold {
		out = out / scale
	}
	out = Round2(out)
	return &out
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
