// Package tenant implements per-user session contexts and the ambient
// identity propagation that routes every resource operation to its owner.
//
// The identity travels as an explicit context.Context value: whatever is
// logically descended from a WithIdentity call (including goroutines that
// inherit the context) observes the originally bound user, regardless of
// how other users' work interleaves in wall-clock time.
package tenant
