package result

// Status represents the lifecycle state of a Node.
type Status string

const (
	// StatusInitialized indicates the Node has been created but the work it
	// tracks has not yet reached a terminal outcome.
	StatusInitialized Status = "initialized"

	// StatusSuccess indicates the tracked work completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates the tracked work hit an operational fault.
	StatusError Status = "error"

	// StatusFailure indicates the tracked work completed but produced a
	// structured domain failure (for example a validation mismatch).
	StatusFailure Status = "failure"

	// StatusUnknown is reported for Nodes in an unrecognized state. It is
	// never set by this package; it exists so report consumers have a
	// defined value for forward compatibility.
	StatusUnknown Status = "unknown"
)

// IsTerminal returns true if the status is one of the three terminal states.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusFailure
}

// String returns the status as a string.
func (s Status) String() string {
	switch s {
	case StatusInitialized, StatusSuccess, StatusError, StatusFailure:
		return string(s)
	default:
		return string(StatusUnknown)
	}
}

// SourceType tags a Node with the kind of operation that produced it.
type SourceType string

const (
	// SourceCommand marks the root Node of a CLI command invocation.
	SourceCommand SourceType = "command"

	// SourcePipeline marks a Node produced by a phase pipeline or a nested
	// sub-pipeline.
	SourcePipeline SourceType = "pipeline"

	// SourceStep marks a Node produced by a single pipeline step.
	SourceStep SourceType = "step"

	// SourceAction marks a Node produced by a lifecycle transition or other
	// domain-object action.
	SourceAction SourceType = "action"

	// SourceValidation marks a Node produced by a validation gate.
	SourceValidation SourceType = "validation"
)
