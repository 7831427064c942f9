// Package daemon runs the watcher as a long-lived background process: a
// poll ticker drives scheduled pipeline runs, a daily timer writes the
// digest, and the HTTP API serves local clients. A file lock enforces a
// single instance per data directory.
package daemon
