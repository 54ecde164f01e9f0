package ports

import "github.com/christianJames24/IoT-2/internal/domain"

// OfflineRecord identifies one durably queued reading. The name embeds a
// second-precision timestamp plus a sequence number so lexicographic
// filename order equals creation order.
type OfflineRecord struct {
	Name string
}

// OfflineStore is the durable local queue of averaged readings awaiting
// confirmed delivery. It is the sole source of truth for whether a reading
// has ever been confirmed sent: a reading is durably queued the instant
// Enqueue returns nil, independent of transport state.
type OfflineStore interface {
	// Enqueue persists the reading before any transport attempt. A
	// persistence failure is returned, never swallowed.
	Enqueue(r domain.AveragedReading) (OfflineRecord, error)

	// Drain visits all pending records oldest-first and stops at the first
	// callback error, leaving the remaining records queued. Records that
	// fail to parse are skipped, kept on disk, and surfaced in the returned
	// error. It is restartable across process runs.
	Drain(fn func(rec OfflineRecord, r domain.AveragedReading) error) error

	// Remove deletes exactly one record after confirmed delivery. Removing
	// an already-removed record is a no-op: a crash between delivery and
	// removal must not corrupt state on restart.
	Remove(rec OfflineRecord) error

	// Len reports the number of pending records.
	Len() (int, error)
}
