package workload

// Version constants for the workload schema and runtime.
const (
	// WorkloadVersion is the workload schema version.
	WorkloadVersion = "1"

	// RuntimeVersion is the Strobe runtime version.
	RuntimeVersion = "0.1.0"
)
