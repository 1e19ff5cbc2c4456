package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseIntensity(t *testing.T) {
	t.Parallel()

	expected := map[int]float64{1: 0.0, 2: 0.25, 3: 0.5, 4: 0.75, 5: 1.0}
	for difficulty, want := range expected {
		assert.InDelta(t, want, BaseIntensity(difficulty), 1e-9, "difficulty %d", difficulty)
	}
}

func TestIntensity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		difficulty int
		primary    bool
		want       float64
	}{
		{"primary difficulty 3", 3, true, 0.6},
		{"secondary difficulty 3", 3, false, 0.4},
		{"primary difficulty 5 exceeds one", 5, true, 1.2},
		{"secondary difficulty 5", 5, false, 0.8},
		{"difficulty 1 is zero", 1, true, 0.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, Intensity(tc.difficulty, tc.primary), 1e-9)
		})
	}
}

func TestNewMuscleGroupImpact(t *testing.T) {
	t.Parallel()

	mg := ExerciseMuscleGroup{
		MuscleGroup: MuscleGroup{ID: 7, Name: "Quadriceps", BodyPart: "Legs"},
		IsPrimary:   true,
	}

	impact := NewMuscleGroupImpact(mg, 4)

	assert.Equal(t, int64(7), impact.MuscleGroupID)
	assert.Equal(t, "Quadriceps", impact.Name)
	assert.Equal(t, "Legs", impact.BodyPart)
	assert.True(t, impact.IsPrimary)
	assert.InDelta(t, 0.9, impact.Intensity, 1e-9)
}

func TestExerciseValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&Exercise{ID: 1, Difficulty: 1}).Validate())
	assert.NoError(t, (&Exercise{ID: 1, Difficulty: 5}).Validate())
	assert.ErrorIs(t, (&Exercise{ID: 1, Difficulty: 0}).Validate(), ErrInvalidDifficulty)
	assert.ErrorIs(t, (&Exercise{ID: 1, Difficulty: 6}).Validate(), ErrInvalidDifficulty)
}
