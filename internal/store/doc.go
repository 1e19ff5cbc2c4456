// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing the generator, consumer and HTTP
// layer to be tested against in-memory fakes.
package store
