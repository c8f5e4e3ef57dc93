/*
Package storage provides BoltDB-backed persistence for stow's
repository state: the blob table holding every artifact, the DAG edge
tables (plink/mlink), the tag/tagxref engine's rows, the timeline
(event), and the membership bags (leaf/private/unsent/unclustered)
that would be ad-hoc SQL queries in a SQLite-backed implementation.

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│  BoltStore                                                │
	│  - File: <dataDir>/stow.db                                │
	│  - One bucket per table, JSON-encoded records             │
	│  - Secondary indexes (hash, name, parent/child, thread)   │
	│    stored as length-prefixed key lists in their own bucket│
	└────────────────────────────────────────────────────────┘

Transactions follow bbolt's usual model: db.View for concurrent reads,
db.Update for serialized writes, both fsync'd on commit. stow's own
nesting/hook semantics live above this package in pkg/txn; BoltStore
itself only ever runs single, flat bbolt transactions.
*/
package storage
