package ports

// DailyLog is the secondary durability net: an append-only file per
// calendar day, one JSON object per line. Append returns the path of the
// file written so the store can record provenance.
type DailyLog interface {
	Append(raw []byte) (path string, err error)
}
