// Package terminal provides pty-backed terminals bound to a single
// user's workspace. The factory resolves the caller's session from the
// ambient identity and starts each shell with that user's root as its
// working directory, so terminals of different users never share state.
//
// A terminal is Open from creation until Dispose, which is idempotent;
// input, show, and hide on a disposed terminal fail with
// ErrTerminalClosed.
package terminal
