// Package types defines a Go-idiomatic API for deriving a contract address
// from a serialized state-init cell tree and preparing external-signing
// digests for outbound messages.
//
// This package only exposes interfaces and core types. A separate internal
// implementation provides the cell-table parser, dictionary descent, and
// bottom-up hash engine.
//
// Design goals:
//   - Paranoid bounds checking; never panic on malformed input.
//   - Typed errors with stable categories (invalid data/hash/key/...).
//   - No dynamic allocation beyond what a single request needs.
//
// This package has no dependencies beyond the standard library.
package types
