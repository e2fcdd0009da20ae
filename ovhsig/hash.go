package ovhsig

import (
	"encoding/binary"
	"encoding/hex"
	"math/bits"
)

// Size is the length of a SHA-1 digest in bytes.
const Size = 20

// blockSize is the SHA-1 block length in bytes (512 bits).
const blockSize = 64

// Round constants per FIPS 180-4 Section 4.2.1.
const (
	k0 = 0x5A827999
	k1 = 0x6ED9EBA1
	k2 = 0x8F1BBCDC
	k3 = 0xCA62C1D6
)

// initState holds the initial hash value per FIPS 180-4 Section 5.3.1.
var initState = [5]uint32{0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476, 0xC3D2E1F0}

// Sum returns the SHA-1 digest of msg.
//
// The implementation follows FIPS 180-4 and is byte-compatible with any
// standard SHA-1 implementation.
func Sum(msg []byte) [Size]byte {
	length := len(msg)

	// Message, 0x80 terminator, zero fill up to 56 mod 64, then the
	// message length in bits as a big-endian 64-bit integer.
	padded := make([]byte, 0, ((length+8)/blockSize+1)*blockSize)
	padded = append(padded, msg...)
	padded = append(padded, 0x80)

	for len(padded)%blockSize != blockSize-8 {
		padded = append(padded, 0)
	}

	padded = binary.BigEndian.AppendUint64(padded, uint64(length)<<3)

	h := initState

	var w [80]uint32
	for off := 0; off < len(padded); off += blockSize {
		processBlock(&h, &w, padded[off:off+blockSize])
	}

	var out [Size]byte
	for i, v := range h {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}

	return out
}

// HexDigest returns the SHA-1 digest of msg as 40 lowercase hex characters.
func HexDigest(msg []byte) string {
	sum := Sum(msg)

	return hex.EncodeToString(sum[:])
}

// processBlock runs the 80-round compression function over one 64-byte
// block, updating h in place. w is scratch space for the message schedule.
func processBlock(h *[5]uint32, w *[80]uint32, p []byte) {
	for i := range 16 {
		w[i] = binary.BigEndian.Uint32(p[i*4:])
	}

	for i := 16; i < 80; i++ {
		w[i] = bits.RotateLeft32(w[i-3]^w[i-8]^w[i-14]^w[i-16], 1)
	}

	a, b, c, d, e := h[0], h[1], h[2], h[3], h[4]

	for i := range 80 {
		var f, k uint32

		switch {
		case i < 20:
			f = (b & c) | (^b & d)
			k = k0
		case i < 40:
			f = b ^ c ^ d
			k = k1
		case i < 60:
			f = (b & c) | (b & d) | (c & d)
			k = k2
		default:
			f = b ^ c ^ d
			k = k3
		}

		t := bits.RotateLeft32(a, 5) + f + e + w[i] + k
		e, d, c, b, a = d, c, bits.RotateLeft32(b, 30), a, t
	}

	h[0] += a
	h[1] += b
	h[2] += c
	h[3] += d
	h[4] += e
}
