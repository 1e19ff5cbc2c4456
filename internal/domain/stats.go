package domain

import "time"

// PerformedExercise is one workout_history row joined with its catalog name.
type PerformedExercise struct {
	ExerciseID  int64     `json:"exercise_id"`
	Name        string    `json:"name"`
	PerformedAt time.Time `json:"performed_at"`
}

// ExerciseFrequency counts how many stored workouts included an exercise.
type ExerciseFrequency struct {
	ExerciseID int64  `json:"exercise_id"`
	Name       string `json:"name"`
	Times      int    `json:"times"`
}

// MuscleGroupLoad sums the computed intensity placed on a muscle group across
// every stored workout of a user.
type MuscleGroupLoad struct {
	MuscleGroupID  int64   `json:"muscle_group_id"`
	Name           string  `json:"name"`
	BodyPart       string  `json:"body_part"`
	TotalIntensity float64 `json:"total_intensity"`
}

// WorkoutStats summarises the workouts generated for one user. TotalVolume
// is the sum of suggested_weight * suggested_reps. A user with no workouts
// has zero counts and nil timestamps.
type WorkoutStats struct {
	UserEmail       string              `json:"user_email"`
	TotalWods       int                 `json:"total_wods"`
	TotalExercises  int                 `json:"total_exercises"`
	TotalVolume     float64             `json:"total_volume"`
	FirstWodAt      *time.Time          `json:"first_wod_at"`
	LastWodAt       *time.Time          `json:"last_wod_at"`
	TopExercises    []ExerciseFrequency `json:"top_exercises"`
	MuscleGroupLoad []MuscleGroupLoad   `json:"muscle_group_load"`
}
