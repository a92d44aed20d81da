// Package storage abstracts the physical filesystem behind the logical
// per-user path space. Providers depend on the Backend interface; tests
// inject in-memory fakes the same way production injects Disk.
package storage
