package engine

import "github.com/edgy2009/adboard/internal/models"

// TraceStep records the surviving candidates at one stage of a decision.
type TraceStep struct {
	Stage   string            `json:"stage"`
	AdIDs   []string          `json:"ad_ids"`
	Details map[string]string `json:"details,omitempty"`
}

// DecisionTrace captures the ordered list of steps performed by a decision.
type DecisionTrace struct {
	Steps []TraceStep `json:"steps"`
}

// AddStep appends a trace entry for the given stage using the supplied ads.
func (t *DecisionTrace) AddStep(stage string, ads []models.Ad) {
	if t == nil {
		return
	}
	step := TraceStep{Stage: stage}
	for _, ad := range ads {
		step.AdIDs = append(step.AdIDs, ad.ID)
	}
	t.Steps = append(t.Steps, step)
}

// AddStepWithDetails appends a trace entry with additional detail about the stage.
func (t *DecisionTrace) AddStepWithDetails(stage string, ads []models.Ad, details map[string]string) {
	if t == nil {
		return
	}
	step := TraceStep{Stage: stage, Details: details}
	for _, ad := range ads {
		step.AdIDs = append(step.AdIDs, ad.ID)
	}
	t.Steps = append(t.Steps, step)
}
