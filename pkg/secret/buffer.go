// Package secret provides a disposal-guaranteed container for credential
// material. A Buffer owns its bytes, redacts itself in any textual output and
// zeroes its storage exactly once, no matter how the owning scope exits.
package secret

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
)

// Redacted is the only string representation a Buffer ever produces.
const Redacted = "[REDACTED]"

// ErrDestroyed is returned by any accessor used after Destroy. Hitting it is a
// caller bug, not a runtime condition.
var ErrDestroyed = errors.New("secret: buffer accessed after destroy")

// ErrUnsupportedAlgorithm is returned by Digest for unknown algorithm names.
var ErrUnsupportedAlgorithm = errors.New("secret: unsupported digest algorithm")

// Buffer holds secret bytes in owned, wipeable storage.
type Buffer struct {
	data      []byte
	destroyed bool
}

// New copies b into owned storage. The caller's slice is never retained or
// mutated and may be zeroed independently.
func New(b []byte) *Buffer {
	owned := make([]byte, len(b))
	copy(owned, b)
	return &Buffer{data: owned}
}

// Len returns the number of secret bytes, 0 once destroyed.
func (b *Buffer) Len() int {
	if b.destroyed {
		return 0
	}
	return len(b.data)
}

// Destroyed reports whether the buffer has been wiped.
func (b *Buffer) Destroyed() bool {
	return b.destroyed
}

// Bytes returns a transient view of the secret bytes. Callers must not retain
// the slice; it is zeroed together with the buffer.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.destroyed {
		return nil, ErrDestroyed
	}
	return b.data, nil
}

// Digest returns the hex digest of the secret bytes. Supported algorithms are
// "sha1" and "sha256". The intermediate sum is wiped before returning so the
// raw digest exists as a standalone copy only inside the returned string.
func (b *Buffer) Digest(algorithm string) (string, error) {
	if b.destroyed {
		return "", ErrDestroyed
	}

	var sum []byte
	switch algorithm {
	case "sha1":
		s := sha1.Sum(b.data)
		sum = s[:]
	case "sha256":
		s := sha256.Sum256(b.data)
		sum = s[:]
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}

	out := hex.EncodeToString(sum)
	Wipe(sum)
	return out, nil
}

// Destroy overwrites every byte with zero. Idempotent; any accessor afterwards
// fails with ErrDestroyed.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	Wipe(b.data)
	b.destroyed = true
}

// String implements fmt.Stringer and always redacts.
func (b *Buffer) String() string {
	return Redacted
}

// Format implements fmt.Formatter so that %v, %+v, %#v and friends can never
// leak buffer contents through the default struct printer.
func (b *Buffer) Format(f fmt.State, verb rune) {
	_, _ = f.Write([]byte(Redacted))
}

// MarshalJSON keeps the redaction guarantee under JSON encoding.
func (b *Buffer) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}

// Wipe zeroes a byte slice using a constant-time copy so the write is not
// elided by the compiler.
func Wipe(p []byte) {
	if len(p) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, p, make([]byte, len(p)))
	runtime.KeepAlive(p)
}

// Do copies raw into a fresh Buffer, invokes fn and guarantees destruction on
// every exit path: normal return, error and panic.
func Do(raw []byte, fn func(*Buffer) error) (err error) {
	buf := New(raw)
	defer buf.Destroy()
	return fn(buf)
}
