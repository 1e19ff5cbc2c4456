// Package queue carries WOD generation requests over RabbitMQ.
//
// It owns the wire format of a request (Encode/Decode), the topology of the
// work queue and its dead-letter companion, publishing with persistent
// delivery, and a blocking consume loop with manual acknowledgement and an
// explicit redelivery ceiling tracked in the x-retry-count header.
package queue
