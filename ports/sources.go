package ports

import (
	"context"

	"labsignal/domain/lab"
)

// DatasetSource loads the reports and protocols one analysis runs over
type DatasetSource interface {
	LoadDataset(ctx context.Context) (lab.Dataset, error)
}

// PriorSource supplies study dose-response priors. Implementations return an
// empty slice, not an error, when no priors are configured.
type PriorSource interface {
	Priors(ctx context.Context) ([]lab.DosePrior, error)
}
