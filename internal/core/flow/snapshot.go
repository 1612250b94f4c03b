package flow

import (
	"fmt"

	"github.com/kirillkom/movement-studio/internal/core/color"
)

// Snapshot is the flat, serializable form of a State. Step always matches
// the variant it was taken from.
type Snapshot struct {
	Step          Step            `json:"step"`
	Image         *Image          `json:"image,omitempty"`
	Caption       string          `json:"caption,omitempty"`
	CaptionFailed bool            `json:"caption_failed,omitempty"`
	Analysis      *color.Analysis `json:"analysis,omitempty"`
	Interaction   *Interaction    `json:"interaction,omitempty"`
}

func Take(state State) Snapshot {
	switch s := state.(type) {
	case Edit:
		img := s.Image
		return Snapshot{Step: StepEdit, Image: &img}
	case Result:
		return resultSnapshot(s)
	case Interact:
		snap := resultSnapshot(s.Result)
		snap.Step = StepInteract
		interaction := s.Interaction
		snap.Interaction = &interaction
		return snap
	default:
		return Snapshot{Step: StepUpload}
	}
}

func resultSnapshot(r Result) Snapshot {
	img := r.Image
	analysis := r.Analysis
	return Snapshot{
		Step:          StepResult,
		Image:         &img,
		Caption:       r.Caption,
		CaptionFailed: r.CaptionFailed,
		Analysis:      &analysis,
	}
}

// Restore rebuilds a State, rejecting snapshots whose fields do not fit
// their step.
func Restore(s Snapshot) (State, error) {
	switch s.Step {
	case StepUpload:
		return Upload{}, nil
	case StepEdit:
		if s.Image == nil {
			return nil, fmt.Errorf("flow: edit snapshot without image")
		}
		return Edit{Image: *s.Image}, nil
	case StepResult, StepInteract:
		if s.Image == nil || s.Analysis == nil {
			return nil, fmt.Errorf("flow: %s snapshot without image or analysis", s.Step)
		}
		result := Result{
			Image:         *s.Image,
			Caption:       s.Caption,
			CaptionFailed: s.CaptionFailed,
			Analysis:      *s.Analysis,
		}
		if s.Step == StepResult {
			return result, nil
		}
		if s.Interaction == nil {
			return nil, fmt.Errorf("flow: interact snapshot without interaction")
		}
		return Interact{Result: result, Interaction: *s.Interaction}, nil
	default:
		return nil, fmt.Errorf("flow: unknown step %q", s.Step)
	}
}
