package domain

// WeightClass buckets parcel weight for cost estimation.
type WeightClass string

const (
	WeightLight    WeightClass = "light"    // up to 5 kg
	WeightStandard WeightClass = "standard" // up to 20 kg
	WeightHeavy    WeightClass = "heavy"    // above 20 kg
)

// ClassifyWeight maps a parcel weight in kilograms to its class.
func ClassifyWeight(kg float64) WeightClass {
	switch {
	case kg <= 5:
		return WeightLight
	case kg <= 20:
		return WeightStandard
	default:
		return WeightHeavy
	}
}

// Valid reports whether the class is one of the known buckets. The zero
// value is not valid; callers default it to WeightStandard.
func (w WeightClass) Valid() bool {
	switch w {
	case WeightLight, WeightStandard, WeightHeavy:
		return true
	}
	return false
}
