package core

// EngineConfig holds the settings a runtime is created with. Execution time
// is bounded by the caller through JSRuntime.Interrupt.
type EngineConfig struct {
	MemoryLimitMB int // per-runtime memory limit, 0 for the engine default
}
