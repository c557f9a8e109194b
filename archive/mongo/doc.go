// Package mongo wires the archive.Store interface to MongoDB, following the
// same collection-indirection shape as the teacher's feature stores so the
// client can be exercised against an in-memory fake without a live server.
package mongo
