// Package store persists planning runs so they can be listed, inspected and
// recompiled later.
//
// Two backends sit behind the Store interface:
//
//   - Redis: each run is a hash at echoplan:{project}:run:{id}, indexed by
//     creation time in the sorted set echoplan:{project}:runs. Saving a run
//     publishes the full run as JSON on echoplan:{project}:run_events, which
//     SubscribeRunEvents delivers to watchers.
//   - SQLite: one row per run in the runs table, with the run JSON-encoded in
//     the payload column. SQLite has no event stream.
//
// All keys and channels are namespaced by project so several projects can
// share one Redis server.
package store
