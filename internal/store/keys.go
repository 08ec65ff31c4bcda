package store

import "fmt"

// Redis key pattern helpers
//
// Key pattern: echoplan:{project}:run:{id}
// Index pattern: echoplan:{project}:runs
// Channel pattern: echoplan:{project}:run_events

// RunKey returns the Redis key for a run hash.
func RunKey(project, runID string) string {
	return fmt.Sprintf("echoplan:%s:run:%s", project, runID)
}

// RunIndexKey returns the Redis key for the ZSET of run IDs scored by creation time.
func RunIndexKey(project string) string {
	return fmt.Sprintf("echoplan:%s:runs", project)
}

// RunEventsChannel returns the Pub/Sub channel name for run events.
func RunEventsChannel(project string) string {
	return fmt.Sprintf("echoplan:%s:run_events", project)
}
