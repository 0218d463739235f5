// Package storage persists docwatch's state.
//
// Slots holds the two single-slot records the pipeline decides on:
//   - latest-source: the last accepted source document
//   - latest-output: the last delivered derived document
//
// Both are replaced atomically (temp file + fsync + rename + dir fsync), so
// a crash mid-write leaves the previous record readable.
//
// Audit is an optional, append-only journal of finished runs. The pipeline
// only writes to it; it is never consulted for decisions.
package storage
