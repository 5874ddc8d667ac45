// Package storage persists the crawler's per-repository state: ordered JSON
// sets (stargazers, detailed users, follower report) and scalar checkpoints.
//
// Three backends implement Store:
//   - FileStore: output_<set>.json files plus .cache/<owner>-<repo>/<checkpoint>
//     text files, written atomically via temp file and rename
//   - SQLiteStore: a single database file
//   - RedisStore: lists and strings under a key prefix
//
// Use ReadItems/AppendItems/ReplaceItems for typed access.
package storage
