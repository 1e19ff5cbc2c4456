//go:build integration

package testdb

import "os"

// databaseURLVars are checked in order; the first non-empty one wins.
var databaseURLVars = []string{"COACH_TEST_DB_URL", "DATABASE_URL", "COACH_DATABASE_URL"}

// GetTestDatabaseURL returns the connection string for integration tests, or
// an empty string when none is configured.
func GetTestDatabaseURL() string {
	for _, name := range databaseURLVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ShouldSkipDatabaseTest reports whether no database is configured.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}
