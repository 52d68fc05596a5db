package tablefeat

import "context"

// Predictor is an opaque model capability fed with table snapshots.
// The store never inspects the model behind it.
type Predictor interface {
	Predict(ctx context.Context, input *Table) (any, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, input *Table) (any, error)

func (f PredictorFunc) Predict(ctx context.Context, input *Table) (any, error) {
	return f(ctx, input)
}
