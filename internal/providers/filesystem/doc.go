// Package filesystem implements the per-user filesystem proxy: every
// operation takes a path relative to the caller's logical workspace root,
// joins it under the ambient session's exclusive subtree, and rejects any
// normalized result that escapes it. Two users writing "the same" relative
// path always land in two physically distinct locations.
package filesystem
