package model

// JobRequest describes one remote pipeline invocation. It is built once per
// inbound request and never mutated afterwards.
type JobRequest struct {
	Payload    []byte
	Kind       InputKind
	FileName   string
	PipelineID string
	UserID     string
	// InputName is the single pipeline input the value is bound to
	// ("file_name", "pantry", "url", ...).
	InputName string
}

// Text returns the payload as a string for text inputs
func (r JobRequest) Text() string {
	return string(r.Payload)
}

// JobHandle identifies a started run. Only the polling loop that created it uses it.
type JobHandle struct {
	RunID string
}

// JobResult is the terminal snapshot of a run
type JobResult struct {
	RunID        string
	State        JobState
	Outputs      map[string]string
	ErrorMessage string
}

// Output returns a named output, or "" when the pipeline did not produce it
func (r *JobResult) Output(name string) string {
	if r == nil || r.Outputs == nil {
		return ""
	}
	return r.Outputs[name]
}
