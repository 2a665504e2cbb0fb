// Package server hosts the clip catalog over HTTP.
//
// POST /convert resolves text into {results:[{word,path}]}, GET /api/status
// reports index health, and /ws carries the overlay feed when one is mounted.
// A file lock keeps a single server per lock directory, and a cron schedule
// rebuilds the index from the clips directory.
package server
