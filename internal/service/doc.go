// Package service contains the application use cases behind the HTTP facade
// and the scheduler. WodService records generation requests, hands them to
// the queue and serves read-side queries over the result, catalog and history
// stores.
//
// The service depends on the interfaces in internal/store and on a Publisher,
// never on Postgres or AMQP directly, so every use case can be exercised with
// the fakes in internal/mocks.
package service
