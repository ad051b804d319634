package domain

// MethodStatus represents the instrumentation outcome of a test method.
type MethodStatus string

const (
	// MethodStatusInstrumented indicates at least one guard was inserted.
	MethodStatusInstrumented MethodStatus = "instrumented"
	// MethodStatusSkipped indicates the model gave the method no flakiness.
	MethodStatusSkipped MethodStatus = "skipped"
	// MethodStatusFailed indicates the method entry could not be instrumented.
	MethodStatusFailed MethodStatus = "failed"
)
