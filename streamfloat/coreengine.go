package streamfloat

// CoreEngineParams are the stream-engine settings of the engine that sits
// next to each core.
type CoreEngineParams struct {
	EnableFloat                  bool
	FloatPolicy                  string
	FloatLevelPolicy             string
	EnableFloatIndirect          bool
	EnableFloatPseudo            bool
	EnableFloatCancel            bool
	EnableMidwayFloat            bool
	MidwayFloatElementIdx        int
	EnableFloatMem               bool
	MLCStreamBufferInitEntries   int
	ComputeWidth                 int
	ComputeSIMDDelay             int
	HasScalarALU                 bool
	ComputeMaxInflyComputation   int
	EnableZeroComputeLatency     bool
	EnableRangeSync              bool
	EnableFloatIndirectReduction bool
	EnableTwoLevelIndirectStore  bool
	EnableFineGrainedNDC         bool
}

// CoreEngine derives the core-side engine settings. The core reuses the LLC
// SIMD delay, halved once it reaches two cycles because the core is closer to
// its data.
func CoreEngine(f *Flags) CoreEngineParams {
	simdDelay := f.LLCAccessCoreSIMDDelay
	if simdDelay >= 2 {
		simdDelay /= 2
	}

	return CoreEngineParams{
		EnableFloat:                  f.Float,
		FloatPolicy:                  f.FloatPolicy,
		FloatLevelPolicy:             f.FloatLevelPolicy,
		EnableFloatIndirect:          f.Indirect,
		EnableFloatPseudo:            f.Pseudo,
		EnableFloatCancel:            f.Cancel,
		EnableMidwayFloat:            f.Midway,
		MidwayFloatElementIdx:        f.MidwayElementIdx,
		EnableFloatMem:               f.FloatMem,
		MLCStreamBufferInitEntries:   f.MLCStreamBufferInitNumEntries,
		ComputeWidth:                 f.ComputeWidth,
		ComputeSIMDDelay:             simdDelay,
		HasScalarALU:                 f.HasScalarALU,
		ComputeMaxInflyComputation:   f.LLCMaxInflyComputation,
		EnableZeroComputeLatency:     f.ZeroComputeLatency,
		EnableRangeSync:              f.RangeSync,
		EnableFloatIndirectReduction: f.FloatIndirectReduction,
		EnableTwoLevelIndirectStore:  f.TwoLevelIndirectStoreCompute,
		EnableFineGrainedNDC:         f.FineGrainedNearDataComputing,
	}
}
