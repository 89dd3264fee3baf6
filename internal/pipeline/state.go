package pipeline

import (
	"errors"
	"fmt"
	"time"

	"resumekit/internal/errcode"
	"resumekit/internal/resume"
)

// State 是生成流水线的状态。
type State int

const (
	Idle State = iota
	Building
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Idle, Building, Ready, Failed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown pipeline state %q", text)
}

// FaultKind classifies surfaced failures.
type FaultKind string

const (
	RenderFault   FaultKind = "render"
	TimeoutFault  FaultKind = "timeout"
	DeliveryFault FaultKind = "delivery"
)

// Fault is a surfaced failure. Every fault can be retried by the user.
type Fault struct {
	Kind    FaultKind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s fault: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s fault: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Cause }

// Retryable is always true; no fault leaves the user without a retry.
func (f *Fault) Retryable() bool { return true }

// Code maps the fault onto the client protocol error codes.
func (f *Fault) Code() int {
	if f == nil {
		return errcode.OK
	}
	switch f.Kind {
	case RenderFault:
		return errcode.RenderFault
	case TimeoutFault:
		return errcode.TimeoutFault
	case DeliveryFault:
		return errcode.DeliveryFault
	default:
		return errcode.SystemError
	}
}

// NewDeliveryFault wraps the error of the last delivery strategy.
func NewDeliveryFault(cause error) *Fault {
	return &Fault{Kind: DeliveryFault, Message: "the document was generated but could not be delivered", Cause: cause}
}

// AsFault extracts a *Fault from err.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	ok := errors.As(err, &f)
	return f, ok
}

// Job is one build request handed to a Builder.
type Job struct {
	// ID is unique per attempt.
	ID            string
	SessionID     string
	Generation    uint64
	Attempt       int
	Snapshot      resume.Snapshot
	Fingerprint   string
	CorrelationID string
}

// Artifact is a generated document. Data may be nil when the bytes only
// live in object storage.
type Artifact struct {
	Data        []byte
	ObjectKey   string
	Size        int64
	Pages       int
	Fingerprint string
	Template    resume.TemplateID
	Warnings    []string
	CreatedAt   time.Time
}

// Summary is the read-only view of an artifact.
type Summary struct {
	ObjectKey   string            `json:"object_key,omitempty"`
	Size        int64             `json:"size"`
	Pages       int               `json:"pages"`
	Fingerprint string            `json:"fingerprint"`
	Template    resume.TemplateID `json:"template"`
	Warnings    []string          `json:"warnings,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (a *Artifact) Summary() *Summary {
	if a == nil {
		return nil
	}
	return &Summary{
		ObjectKey:   a.ObjectKey,
		Size:        a.Size,
		Pages:       a.Pages,
		Fingerprint: a.Fingerprint,
		Template:    a.Template,
		Warnings:    a.Warnings,
		CreatedAt:   a.CreatedAt,
	}
}

// Status is a snapshot of the pipeline state.
type Status struct {
	SessionID  string    `json:"session_id,omitempty"`
	State      State     `json:"state"`
	Generation uint64    `json:"generation"`
	Attempts   int       `json:"attempts"`
	Artifact   *Summary  `json:"artifact,omitempty"`
	Fault      *Fault    `json:"-"`
	ErrorCode  int       `json:"error_code"`
	ErrorMsg   string    `json:"error_message,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether the status is READY or FAILED.
func (s Status) Terminal() bool { return s.State == Ready || s.State == Failed }
