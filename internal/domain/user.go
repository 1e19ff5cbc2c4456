package domain

import "time"

// User is a member of the coaching programme. The user directory is owned by
// another service; this package only reads it.
type User struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Weight      *float64  `json:"weight,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	FitnessGoal string    `json:"fitness_goal,omitempty"`
	Onboarded   bool      `json:"onboarded"`
	CreatedAt   time.Time `json:"created_at"`
}
