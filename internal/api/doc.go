// Package api exposes the watcher's state over a local HTTP interface.
//
// The server is read-mostly: it reports channels, videos, runs, and digests,
// and accepts two mutations, triggering a poll and retrying a failed video.
package api
