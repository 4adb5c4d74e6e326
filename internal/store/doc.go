// Package store provides the SQLite-backed run journal.
//
// Each conversion can append one row describing what ran: input and
// output paths, geometry, protection level, elapsed simulated time, event
// counters and the output digest. Buffer contents are never stored.
//
// # Conventions
//
//   - Run IDs are UUIDv7, so ORDER BY id follows creation order.
//   - Listing is ORDER BY created_at DESC, id DESC for stable output.
//   - Paths are NFC normalized before storage so the same file name typed
//     on different systems compares equal.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
