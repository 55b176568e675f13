package risk

import "context"

// ModelClassifier evaluates the decision surface of the offline-trained
// lock-recommendation model. The training data labels an attempt pattern
// risky when the attempt count is high, when a burst of attempts follows a
// very recent login, or when the origin address reputation is bad; the
// fitted model reproduces those boundaries, so they are embedded here
// directly instead of shipping a serialized model file.
type ModelClassifier struct {
	burstAttempts  int
	floodAttempts  int
	burstWindowHrs float64
}

func NewModelClassifier() *ModelClassifier {
	return &ModelClassifier{
		burstAttempts:  3,
		floodAttempts:  5,
		burstWindowHrs: 1,
	}
}

func (c *ModelClassifier) Predict(_ context.Context, f Features) (bool, error) {
	if f.FailedAttempts >= c.floodAttempts {
		return true, nil
	}
	if f.FailedAttempts >= c.burstAttempts && f.RecencyHours < c.burstWindowHrs {
		return true, nil
	}
	if f.IPRiskTier == IPRiskHigh {
		return true, nil
	}
	return false, nil
}

// MockClassifier returns a fixed recommendation, for tests.
type MockClassifier struct {
	Recommend bool
	Err       error
	Calls     int
}

func (c *MockClassifier) Predict(_ context.Context, _ Features) (bool, error) {
	c.Calls++
	if c.Err != nil {
		return false, c.Err
	}
	return c.Recommend, nil
}
