package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLetterMissionStartsAtZero(t *testing.T) {
	match := &PenpalMatch{ID: "m1", User1ID: "u1", User1Name: "Mina", User2ID: "u2", User2Name: "Jun"}
	mission := NewLetterMission("mission-1", match)

	assert.Equal(t, "m1", mission.MatchID)
	assert.Equal(t, 0, mission.CurrentStep)
	assert.Equal(t, MissionTotalSteps, mission.TotalSteps)
	assert.False(t, mission.IsCompleted)
	assert.Equal(t, make([]bool, MissionTotalSteps), mission.Steps())
}

func TestMarkStepAdvancesCursor(t *testing.T) {
	mission := NewLetterMission("mission-1", &PenpalMatch{ID: "m1"})

	mission.MarkStep(1)
	assert.Equal(t, 1, mission.CurrentStep)
	assert.True(t, mission.Steps()[0])
	assert.False(t, mission.IsCompleted)

	// Marking an earlier step never moves the cursor backwards.
	mission.MarkStep(3)
	mission.MarkStep(2)
	assert.Equal(t, 3, mission.CurrentStep)
}

func TestMarkStepCompletesWhenAllSlotsFilled(t *testing.T) {
	mission := NewLetterMission("mission-1", &PenpalMatch{ID: "m1"})

	for step := 1; step <= MissionTotalSteps; step++ {
		mission.MarkStep(step)
	}
	assert.True(t, mission.IsCompleted)
	assert.Equal(t, MissionTotalSteps, mission.CurrentStep)
	for _, done := range mission.Steps() {
		assert.True(t, done)
	}
}

func TestMarkStepPastNominalCountOnlyMovesCursor(t *testing.T) {
	mission := NewLetterMission("mission-1", &PenpalMatch{ID: "m1"})
	for step := 1; step <= MissionTotalSteps; step++ {
		mission.MarkStep(step)
	}

	mission.MarkStep(MissionTotalSteps + 1)
	assert.Equal(t, MissionTotalSteps+1, mission.CurrentStep)
	assert.Len(t, mission.Steps(), MissionTotalSteps)
	assert.True(t, mission.IsCompleted)
}

func TestStepsSurvivesCorruptPayload(t *testing.T) {
	mission := NewLetterMission("mission-1", &PenpalMatch{ID: "m1"})
	mission.StepsJSON = "not json"

	steps := mission.Steps()
	require.Len(t, steps, MissionTotalSteps)
	for _, done := range steps {
		assert.False(t, done)
	}
}
