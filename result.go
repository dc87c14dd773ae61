// Copyright (c) 2024 the SieveVM Authors.
// Use of this source code is governed by a MIT License
// that can be found in the LICENSE file.

package sievevm

// Result is the narrow boundary to the host's result-accumulation
// subsystem. The engine never interprets delivery semantics itself; action
// operations record what the script decided and the host carries it out
// after the run. An implementation may decline an action by returning an
// error, which aborts the run.
type Result interface {
	// AddKeep records a keep action together with the side effects decoded
	// from the operation's optional operands and the script source line the
	// operation was generated from. The implementation takes ownership of
	// the side-effects list.
	AddKeep(effects SideEffectsList, sourceLine int) error

	// AddDiscard records that the message's implicit keep is cancelled.
	AddDiscard(sourceLine int) error
}
