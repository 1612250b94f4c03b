// Package flow sequences the movement creator: upload, edit, result and
// interact. Each step is its own type carrying exactly the data that step
// needs, so a step can never hold a payload meant for another one.
package flow

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/movement-studio/internal/core/color"
)

type Step string

const (
	StepUpload   Step = "upload"
	StepEdit     Step = "edit"
	StepResult   Step = "result"
	StepInteract Step = "interact"
)

var stepOrder = map[Step]int{
	StepUpload:   0,
	StepEdit:     1,
	StepResult:   2,
	StepInteract: 3,
}

// Before reports whether s comes earlier in the flow than other.
func (s Step) Before(other Step) bool {
	return stepOrder[s] < stepOrder[other]
}

func (s Step) Valid() bool {
	_, ok := stepOrder[s]
	return ok
}

// Image references an uploaded image held in object storage.
type Image struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Interaction summarizes what the visitor did with a finished movement.
type Interaction struct {
	Summary     string    `json:"summary"`
	CompletedAt time.Time `json:"completed_at"`
}

// State is one of Upload, Edit, Result or Interact.
type State interface {
	Step() Step
	sealed()
}

type Upload struct{}

type Edit struct {
	Image Image
}

type Result struct {
	Image         Image
	Caption       string
	CaptionFailed bool
	Analysis      color.Analysis
}

type Interact struct {
	Result      Result
	Interaction Interaction
}

func (Upload) Step() Step   { return StepUpload }
func (Edit) Step() Step     { return StepEdit }
func (Result) Step() Step   { return StepResult }
func (Interact) Step() Step { return StepInteract }

func (Upload) sealed()   {}
func (Edit) sealed()     {}
func (Result) sealed()   {}
func (Interact) sealed() {}

var ErrNilState = errors.New("flow: nil state")

// Machine holds the current state of one visitor's flow.
type Machine struct {
	state State
}

func New() *Machine {
	return &Machine{state: Upload{}}
}

// FromState resumes a machine at a previously stored state.
func FromState(state State) (*Machine, error) {
	if state == nil {
		return nil, ErrNilState
	}
	return &Machine{state: state}, nil
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Step() Step { return m.state.Step() }

// Advance moves to any state. Deciding whether the move makes sense is left
// to the caller.
func (m *Machine) Advance(next State) error {
	if next == nil {
		return ErrNilState
	}
	m.state = next
	return nil
}

// Back returns to the previous step. Upload has no predecessor.
func (m *Machine) Back() State {
	m.state = previous(m.state)
	return m.state
}

func (m *Machine) Reset() {
	m.state = Upload{}
}

func previous(state State) State {
	switch s := state.(type) {
	case Edit:
		return Upload{}
	case Result:
		return Edit{Image: s.Image}
	case Interact:
		return s.Result
	default:
		return Upload{}
	}
}

// ImageOf returns the image a state holds, if any.
func ImageOf(state State) (Image, bool) {
	switch s := state.(type) {
	case Edit:
		return s.Image, true
	case Result:
		return s.Image, true
	case Interact:
		return s.Result.Image, true
	default:
		return Image{}, false
	}
}

// Released returns the image held by prev that next no longer references.
// Storage for that image must be released exactly once, by whoever performed
// the transition.
func Released(prev, next State) (Image, bool) {
	old, ok := ImageOf(prev)
	if !ok || old.Key == "" {
		return Image{}, false
	}
	if current, ok := ImageOf(next); ok && current.Key == old.Key {
		return Image{}, false
	}
	return old, true
}

// RequireResult returns the result payload of states at or past the result
// step.
func RequireResult(state State) (Result, error) {
	switch s := state.(type) {
	case Result:
		return s, nil
	case Interact:
		return s.Result, nil
	case nil:
		return Result{}, ErrNilState
	default:
		return Result{}, fmt.Errorf("flow: step %s has no result", state.Step())
	}
}
