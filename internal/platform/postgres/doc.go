// Package postgres provides PostgreSQL implementations of the interfaces in
// internal/store: the result store for generated workouts, the read-only
// exercise catalog and user directory, the workout history, and the request
// status table. Queries go through database/sql with the pgx stdlib driver;
// every store accepts a store.DBTX so it can run inside a caller's
// transaction via WithTx.
//
// The schema and the seed catalog live in the embedded migrations directory
// and are applied with Migrate.
package postgres
