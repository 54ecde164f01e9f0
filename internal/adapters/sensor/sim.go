package sensor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/christianJames24/IoT-2/internal/domain"
	"github.com/christianJames24/IoT-2/internal/ports"
)

// SimSource fakes a DHT11 for development without hardware: values random-walk
// around a base point and a configurable fraction of reads fail, the way the
// real driver intermittently does.
type SimSource struct {
	mu       sync.Mutex
	rng      *rand.Rand
	temp     float64
	hum      float64
	FailRate float64
}

func NewSimSource(seed int64) *SimSource {
	return &SimSource{
		rng:      rand.New(rand.NewSource(seed)),
		temp:     21.0,
		hum:      45.0,
		FailRate: 0.1,
	}
}

func (s *SimSource) Sample(_ context.Context) ([]domain.RawSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.FailRate {
		return nil, ErrReadFailed
	}

	s.temp += s.rng.Float64() - 0.5
	s.hum += s.rng.Float64() - 0.5
	now := time.Now()
	return []domain.RawSample{
		{Kind: domain.SensorTemperature, Value: s.temp, CapturedAt: now},
		{Kind: domain.SensorHumidity, Value: s.hum, CapturedAt: now},
	}, nil
}

var _ ports.SampleSource = (*SimSource)(nil)
