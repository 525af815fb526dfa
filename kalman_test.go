package ctrvekf

import "testing"

func TestImplementsKF(t *testing.T) {
	implements := func(Filter) {}
	implements(new(EKF))
}

func TestImplementsEst(t *testing.T) {
	implements := func(Estimate) {}
	implements(EKFEstimate{})
	implements(ErrorEstimate{})
}
