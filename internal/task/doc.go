// Package task runs the consumer side of the workout pipeline. A Consumer
// turns one queue message into one generation attempt and a queue.Decision;
// a Worker owns the broker session around it, reconnecting when the
// connection drops and stopping cleanly on shutdown.
//
// Request status rows are updated on a best-effort basis: a failed status
// write is logged and never changes how the message is settled.
package task
