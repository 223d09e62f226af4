// Package log defines standard attribute keys for learning machine operations.
//
// Using these keys across learners, transformers, the wire layer and the
// snapshot store keeps the emitted records filterable by a single schema.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the registered name of a learner, transformer or scaler.
	// Examples: "LSSVM", "RLS", "Scaler", "standardizer"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "learner.lssvm", "core.portable", "store.sqlite"
	ComponentKey = "ml.component"

	// StateKey records the lifecycle state of a learner ("empty", "collecting", "trained").
	StateKey = "ml.state"
)

// Data Shape
const (
	// SamplesKey indicates the number of collected training samples.
	SamplesKey = "data.samples"

	// DomainKey indicates the input dimensionality.
	DomainKey = "data.domain"

	// CodomainKey indicates the output dimensionality.
	CodomainKey = "data.codomain"
)

// Performance and Quality
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LOOKey records the per-output leave-one-out error estimate.
	LOOKey = "metrics.loo"

	// MSEKey records a mean squared error.
	MSEKey = "metrics.mse"
)

// Wire and Storage
const (
	// FrameKey describes the outcome of reading or writing a wire frame.
	FrameKey = "wire.frame"

	// ReasonKey gives a short machine readable reason for a rejected frame.
	// Examples: "bad_tag", "bad_count", "unknown_name", "payload"
	ReasonKey = "wire.reason"

	// SnapshotIDKey identifies a stored snapshot.
	SnapshotIDKey = "store.snapshot_id"

	// PathKey records a file or database path.
	PathKey = "io.path"
)

// Hyperparameters
const (
	// RegularizationKey records the LSSVM trade-off parameter C or the RLS lambda.
	RegularizationKey = "hyperparams.regularization"

	// GammaKey records a kernel width parameter.
	GammaKey = "hyperparams.gamma"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFeed      = "feed"
	OperationTrain     = "train"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationConfigure = "configure"
	OperationReadWire  = "read_wire"
	OperationWriteWire = "write_wire"
	OperationSave      = "save"
	OperationLoad      = "load"

	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorSingularMatrix    = "SINGULAR_MATRIX"
	ErrorUnknownKey        = "UNKNOWN_KEY"
	ErrorMalformedFrame    = "MALFORMED_FRAME"
)
