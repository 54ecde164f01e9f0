package ports

import "github.com/christianJames24/IoT-2/internal/domain"

// LiveView receives every accepted reading for the in-memory time series.
type LiveView interface {
	Add(p domain.LivePoint)
}
