// Package main implements the coach binary: the HTTP facade, the queue
// consumer, the daily scheduler and the operational commands around the
// workout-of-the-day generation pipeline.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
