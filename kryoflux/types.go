package kryoflux

const (
	// Enable for verbose stream-decode tracing.
	DebugFlag = false

	// ReadBufferSize is the chunk size used when draining the bulk-in
	// endpoint during a stream capture.
	ReadBufferSize = 16 * 1024

	// DefaultSampleClock and DefaultIndexClock are the nominal KryoFlux
	// sample and index clock rates (Hz), used for every tick-to-time
	// conversion; the values a device reports in a KFInfo OOB block are
	// not parsed.
	DefaultSampleClock = 24027428.5714285
	DefaultIndexClock  = 3003428.5714285625
)

// IndexTiming records one index-pulse OOB block decoded from a stream.
type IndexTiming struct {
	streamPosition uint32
	sampleCounter  uint32
	indexCounter   uint32
}

// DecodedStreamData holds the flux transitions and index-pulse timings
// extracted from one captured KryoFlux stream.
type DecodedStreamData struct {
	FluxTransitions []uint64
	IndexPulses     []IndexTiming
}
