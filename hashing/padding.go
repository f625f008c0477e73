package hashing

import (
	"encoding/binary"
	"fmt"

	"github.com/mynextid/zk-passport/common"
)

// Maximum padded buffer sizes of the register circuits, by hash function
var (
	MaxPaddedEContentLen = map[Function]int{
		SHA1:   384,
		SHA224: 512,
		SHA256: 512,
		SHA384: 768,
		SHA512: 896,
	}
	MaxPaddedSignedAttrLen = map[Function]int{
		SHA1:   128,
		SHA224: 128,
		SHA256: 128,
		SHA384: 256,
		SHA512: 256,
	}
)

// BlockSize returns the compression block size of f in bytes
func (f Function) BlockSize() int {
	if f == SHA384 || f == SHA512 {
		return 128
	}
	return 64
}

// Pad applies the padding scheme of f to msg and zero-fills the result to
// maxLen bytes. It returns the buffer and the length of the SHA-padded
// message, which bounds the in-circuit hashing.
func Pad(f Function, msg []byte, maxLen int) ([]byte, int, error) {
	if f == SHA384 || f == SHA512 {
		return pad1024(msg, maxLen)
	}
	return pad512(msg, maxLen)
}

// pad512 is the sha1/sha224/sha256 scheme: 0x80, zeros, 64-bit bit length.
func pad512(msg []byte, maxLen int) ([]byte, int, error) {
	return shaPad(msg, maxLen, 64, 8)
}

// pad1024 is the sha384/sha512 scheme: 0x80, zeros, 128-bit bit length.
func pad1024(msg []byte, maxLen int) ([]byte, int, error) {
	return shaPad(msg, maxLen, 128, 16)
}

func shaPad(msg []byte, maxLen, blockSize, lenSize int) ([]byte, int, error) {
	paddedLen := ((len(msg) + 1 + lenSize + blockSize - 1) / blockSize) * blockSize
	if paddedLen > maxLen {
		return nil, 0, fmt.Errorf("%w: %d bytes padded to %d exceed %d",
			common.ErrPaddingOverflow, len(msg), paddedLen, maxLen)
	}
	if maxLen%blockSize != 0 {
		return nil, 0, fmt.Errorf("%w: max length %d is not a multiple of the %d byte block",
			common.ErrPaddingOverflow, maxLen, blockSize)
	}

	out := make([]byte, maxLen)
	copy(out, msg)
	out[len(msg)] = 0x80
	// the bit length always fits the low 8 bytes of the suffix
	binary.BigEndian.PutUint64(out[paddedLen-8:paddedLen], uint64(len(msg))*8)
	return out, paddedLen, nil
}
