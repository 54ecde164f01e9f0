package aggregator

import (
	"math"
	"time"

	"github.com/christianJames24/IoT-2/internal/domain"
)

// Aggregator reduces a fixed window of raw samples to one averaged reading.
// Not safe for concurrent use; the edge loop is its single owner.
type Aggregator struct {
	window int
	temps  []float64
	hums   []float64
	now    func() time.Time
}

// New builds an aggregator with the given window size (samples per emitted
// reading). Window sizes below 1 fall back to the reference size of 5.
func New(window int) *Aggregator {
	if window < 1 {
		window = 5
	}
	return &Aggregator{
		window: window,
		temps:  make([]float64, 0, window),
		hums:   make([]float64, 0, window),
		now:    time.Now,
	}
}

// Observe records one raw temperature/humidity pair. Once the window fills,
// it emits the averaged reading, stamps it with the current wall clock, and
// clears the buffer. The timestamp is assigned exactly once here: retries
// downstream must reuse it, since it is the deduplication key.
func (a *Aggregator) Observe(temperature, humidity float64) (domain.AveragedReading, bool) {
	a.temps = append(a.temps, temperature)
	a.hums = append(a.hums, humidity)
	if len(a.temps) < a.window {
		return domain.AveragedReading{}, false
	}

	r := domain.AveragedReading{
		Temperature: round2(mean(a.temps)),
		Humidity:    round2(mean(a.hums)),
		Timestamp:   a.now().Format(domain.TimestampLayout),
	}
	a.temps = a.temps[:0]
	a.hums = a.hums[:0]
	return r, true
}

// Pending reports how many samples are buffered toward the next emission.
func (a *Aggregator) Pending() int {
	return len(a.temps)
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
