package ports

import (
	"context"

	"github.com/christianJames24/IoT-2/internal/domain"
)

// SampleSource abstracts the sensor driver. One poll yields one raw sample
// per quantity the sensor measures (a DHT11 reports temperature and
// humidity together). A transient read failure is returned as an error and
// is expected to be skipped by the caller without resetting any window.
type SampleSource interface {
	Sample(ctx context.Context) ([]domain.RawSample, error)
}

// SampleFunc adapts a plain function to SampleSource.
type SampleFunc func(ctx context.Context) ([]domain.RawSample, error)

func (f SampleFunc) Sample(ctx context.Context) ([]domain.RawSample, error) {
	return f(ctx)
}
