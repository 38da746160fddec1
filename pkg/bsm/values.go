package bsm

// CallValue returns the Black-Scholes-Merton value of a European call.
func CallValue(in Inputs) (float64, error) {
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	return callValue(in, tm), nil
}

// PutValue returns the Black-Scholes-Merton value of a European put.
func PutValue(in Inputs) (float64, error) {
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	return putValue(in, tm), nil
}

// Value dispatches to CallValue or PutValue.
func Value(t OptionType, in Inputs) (float64, error) {
	switch t {
	case Call:
		return CallValue(in)
	case Put:
		return PutValue(in)
	default:
		return 0, t.Validate()
	}
}

// Parity returns the forward-parity bound s·e^(-q·t) - k·e^(-r·t), which
// equals call value minus put value for identical inputs.
func Parity(in Inputs) (float64, error) {
	tm, err := newTerms(in)
	if err != nil {
		return 0, err
	}
	return in.Spot*tm.divDiscount - in.Strike*tm.discount, nil
}

func callValue(in Inputs, tm terms) float64 {
	return in.Spot*tm.divDiscount*N(tm.d1) - in.Strike*tm.discount*N(tm.d2)
}

func putValue(in Inputs, tm terms) float64 {
	return in.Strike*tm.discount*N(-tm.d2) - in.Spot*tm.divDiscount*N(-tm.d1)
}
