// Package server exposes the task lifecycle API over HTTP and mounts the
// streaming gateway. It is a thin transport layer: all semantics live in the
// queue, state and gateway packages.
package server
