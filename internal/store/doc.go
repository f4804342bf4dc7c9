// Package store keeps the dial journal in SQLite.
//
// Two tables make up the journal. attempts holds one row per dialing
// attempt with its outcome; entries holds every channel event recorded
// while the attempt ran. Nothing is ever restored from it: a restarted
// process starts Idle, and the journal only answers what happened.
//
// Entries are ordered by the recorder's logical seq, not wall time. Every
// read sorts by seq then row id.
//
// A journal opened for writing uses WAL mode so the trace command can read
// while a dial is writing. ReadOnly connections set query_only and never
// touch the schema.
package store
