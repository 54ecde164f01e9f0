package ports

// Observability is the logging + metrics seam shared by the edge and hub
// pipelines.
type Observability interface {
	LogDebug(msg string, fields ...Field)
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)
}

// Field is one structured log attribute.
type Field struct {
	Key   string
	Value any
}
