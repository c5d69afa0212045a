package telemetry

// Tracer and span names used for instrumentation.
const (
	TracerGeneration = "groupride/generation"
	TracerProviders  = "groupride/providers"

	SpanGenerate  = "generation.generate"
	SpanSynthesis = "generation.synthesize"
	SpanPersist   = "generation.persist"
	SpanRouting   = "provider.routing"
	SpanPOIQuery  = "provider.poi"
)
