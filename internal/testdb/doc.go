//go:build integration

// Package testdb provides helpers for integration tests that run against a
// real PostgreSQL instance.
//
// Each test runs inside its own transaction, rolled back when the test
// completes, so tests can use t.Parallel() and share the seeded catalog
// without cleanup:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        wods := postgres.NewPostgresWodStore(tx, nil)
//	        // ...
//	    })
//	}
//
// Tests are skipped when no database URL is configured. The schema is
// migrated once per test binary.
package testdb
