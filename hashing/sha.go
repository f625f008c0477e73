// Package hashing selects the SHA variant a passport declares, pads messages
// for the circuit's fixed buffers and computes Poseidon field hashes.
package hashing

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"strings"

	"github.com/mynextid/zk-passport/logger"
)

// Function identifies a SHA family hash
type Function int

const (
	SHA1 Function = iota + 1
	SHA224
	SHA256
	SHA384
	SHA512
)

// Functions lists the supported hash functions in ascending digest size
var Functions = []Function{SHA1, SHA224, SHA256, SHA384, SHA512}

var functionNames = map[Function]string{
	SHA1:   "sha1",
	SHA224: "sha224",
	SHA256: "sha256",
	SHA384: "sha384",
	SHA512: "sha512",
}

func (f Function) String() string {
	if name, ok := functionNames[f]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether f is one of the supported functions
func (f Function) Valid() bool {
	_, ok := functionNames[f]
	return ok
}

// Size returns the digest length in bytes
func (f Function) Size() int {
	switch f {
	case SHA1:
		return sha1.Size
	case SHA224:
		return sha256.Size224
	case SHA384:
		return sha512.Size384
	case SHA512:
		return sha512.Size
	default:
		return sha256.Size
	}
}

// Sum hashes data with f. Invalid values hash with sha256.
func (f Function) Sum(data []byte) []byte {
	switch f {
	case SHA1:
		h := sha1.Sum(data)
		return h[:]
	case SHA224:
		h := sha256.Sum224(data)
		return h[:]
	case SHA384:
		h := sha512.Sum384(data)
		return h[:]
	case SHA512:
		h := sha512.Sum512(data)
		return h[:]
	default:
		h := sha256.Sum256(data)
		return h[:]
	}
}

// LookupFunction resolves a hash name such as "sha256" or "SHA-256"
func LookupFunction(name string) (Function, bool) {
	n := strings.ToLower(strings.ReplaceAll(name, "-", ""))
	for f, fn := range functionNames {
		if fn == n {
			return f, true
		}
	}
	return 0, false
}

// ParseFunction resolves name, falling back to sha256 with a warning.
// TODO: make the fallback configurable once certificate sets are audited for
// unknown hash names.
func ParseFunction(name string) Function {
	if f, ok := LookupFunction(name); ok {
		return f
	}
	logger.Logger().Warn().Str("hash", name).Msg("unknown hash function, defaulting to sha256")
	return SHA256
}

// Hash hashes data with the named function
func Hash(name string, data []byte) []byte {
	return ParseFunction(name).Sum(data)
}

// HashLen returns the digest size of the named function
func HashLen(name string) int {
	return ParseFunction(name).Size()
}
