// Package generation builds a user's workout of the day.
//
// WodGenerator selects exercises the user did not perform in their most
// recent workout window, computes per-exercise muscle-group intensity,
// suggests a load, and persists the result. ChaosGenerator wraps any
// Generator and injects failures at a configured rate so that the retry and
// dead-letter paths of the consumer can be exercised.
package generation
