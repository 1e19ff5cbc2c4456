// Package domain contains the core business entities of the coaching backend:
// the exercise catalog, generated workouts (WODs), generation requests and the
// users they belong to. It is independent of storage and transport.
package domain
