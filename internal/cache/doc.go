// Package cache provides a byte-bounded in-memory LRU cache. Playback keeps
// decoded PCM here so a reply heard twice is decoded once.
package cache
