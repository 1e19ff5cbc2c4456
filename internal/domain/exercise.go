package domain

import "fmt"

// Difficulty bounds for catalog exercises.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Intensity multipliers applied to the base intensity of an exercise.
const (
	PrimaryMultiplier   = 1.2
	SecondaryMultiplier = 0.8
)

// MuscleGroup is a named muscle group in the catalog.
type MuscleGroup struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	BodyPart    string `json:"body_part"`
	Description string `json:"description,omitempty"`
}

// ExerciseMuscleGroup links an exercise to a muscle group it works.
type ExerciseMuscleGroup struct {
	MuscleGroup
	IsPrimary bool `json:"is_primary"`
}

// Exercise is a catalog entry. Catalog rows are read-only for this service.
type Exercise struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description,omitempty"`
	Difficulty   int                   `json:"difficulty"`
	Equipment    string                `json:"equipment,omitempty"`
	Instructions string                `json:"instructions,omitempty"`
	MuscleGroups []ExerciseMuscleGroup `json:"muscle_groups,omitempty"`
}

// Validate checks that the exercise difficulty is in range.
func (e *Exercise) Validate() error {
	if e.Difficulty < MinDifficulty || e.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: exercise %d has difficulty %d", ErrInvalidDifficulty, e.ID, e.Difficulty)
	}
	return nil
}

// MuscleGroupImpact is the computed load an exercise places on one muscle group.
type MuscleGroupImpact struct {
	MuscleGroupID int64   `json:"muscle_group_id"`
	Name          string  `json:"name"`
	BodyPart      string  `json:"body_part"`
	IsPrimary     bool    `json:"is_primary"`
	Intensity     float64 `json:"intensity"`
}

// BaseIntensity maps difficulty 1..5 linearly onto 0.0..1.0.
func BaseIntensity(difficulty int) float64 {
	return float64(difficulty-1) / 4.0
}

// Intensity scales the base intensity by the primary or secondary multiplier.
// Primary groups may exceed 1.0; the result is not clamped.
func Intensity(difficulty int, isPrimary bool) float64 {
	if isPrimary {
		return BaseIntensity(difficulty) * PrimaryMultiplier
	}
	return BaseIntensity(difficulty) * SecondaryMultiplier
}

// NewMuscleGroupImpact derives the impact of an exercise of the given difficulty
// on mg.
func NewMuscleGroupImpact(mg ExerciseMuscleGroup, difficulty int) MuscleGroupImpact {
	return MuscleGroupImpact{
		MuscleGroupID: mg.ID,
		Name:          mg.Name,
		BodyPart:      mg.BodyPart,
		IsPrimary:     mg.IsPrimary,
		Intensity:     Intensity(difficulty, mg.IsPrimary),
	}
}
