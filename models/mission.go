package models

import "encoding/json"

// MissionTotalSteps is the nominal length of a letter mission.
const MissionTotalSteps = 10

// LetterMission tracks the step-by-step letter exchange for one match.
// Steps are stored as a fixed-length JSON bool array; an extended mission
// keeps accepting steps past the nominal count (without growing the array).
type LetterMission struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	MatchID   string `gorm:"uniqueIndex;not null" json:"match_id"`
	User1ID   string `gorm:"index;not null" json:"user1_id"`
	User1Name string `gorm:"not null" json:"user1_name"`
	User2ID   string `gorm:"index;not null" json:"user2_id"`
	User2Name string `gorm:"not null" json:"user2_name"`

	CurrentStep int    `gorm:"not null;default:0" json:"current_step"`
	TotalSteps  int    `gorm:"not null;default:10" json:"total_steps"`
	StepsJSON   string `gorm:"type:text;not null" json:"-"`
	IsCompleted bool   `gorm:"not null;default:false;index" json:"is_completed"`
	Extended    bool   `gorm:"not null;default:false" json:"extended"`

	Timestamps
}

// Steps decodes the per-step completion flags.
func (m *LetterMission) Steps() []bool {
	var steps []bool
	if err := json.Unmarshal([]byte(m.StepsJSON), &steps); err != nil || len(steps) != m.TotalSteps {
		steps = make([]bool, m.TotalSteps)
	}
	return steps
}

// SetSteps encodes the per-step completion flags.
func (m *LetterMission) SetSteps(steps []bool) {
	raw, _ := json.Marshal(steps)
	m.StepsJSON = string(raw)
}

// MarkStep records completion of a 1-based step number. Steps past the
// nominal count (extended missions) only move the cursor. CurrentStep
// never decreases.
func (m *LetterMission) MarkStep(step int) {
	if step <= m.TotalSteps {
		steps := m.Steps()
		steps[step-1] = true
		m.SetSteps(steps)

		done := true
		for _, s := range steps {
			if !s {
				done = false
				break
			}
		}
		if done {
			m.IsCompleted = true
		}
	}
	if step > m.CurrentStep {
		m.CurrentStep = step
	}
}

// NewLetterMission builds the zero-progress mission for an approved match.
func NewLetterMission(id string, match *PenpalMatch) *LetterMission {
	mission := &LetterMission{
		ID:         id,
		MatchID:    match.ID,
		User1ID:    match.User1ID,
		User1Name:  match.User1Name,
		User2ID:    match.User2ID,
		User2Name:  match.User2Name,
		TotalSteps: MissionTotalSteps,
	}
	mission.SetSteps(make([]bool, MissionTotalSteps))
	return mission
}
