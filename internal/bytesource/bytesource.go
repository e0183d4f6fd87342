// Package bytesource supplies a tvc or message byte slice to the engine,
// either by memory-mapping a file on disk (zero-copy) or by wrapping a
// caller-supplied in-memory buffer. Library callers normally construct the
// engine's input directly; this package exists for cmd/tvcctl, where the
// input is always a path on disk.
package bytesource

// FromBytes wraps an in-memory buffer in the same (data, close, error) shape
// Open returns, so callers can treat a path and a pre-read buffer uniformly.
func FromBytes(data []byte) ([]byte, func() error, error) {
	return data, func() error { return nil }, nil
}
