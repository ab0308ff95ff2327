package statistic

import "math/bits"

const (
	c1_32 uint32 = 0xcc9e2d51
	c2_32 uint32 = 0x1b873593
)

// MurmurHash3 (32-bit) over an arbitrary byte key.
func MurmurHash3(data []byte, seed uint32) (h1 uint32) {
	h1 = seed
	clen := uint32(len(data))
	for len(data) >= 4 {
		k1 := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
		data = data[4:]

		k1 *= c1_32
		k1 = bits.RotateLeft32(k1, 15)
		k1 *= c2_32

		h1 ^= k1
		h1 = bits.RotateLeft32(h1, 13)
		h1 = h1*5 + 0xe6546b64
	}
	var k1 uint32
	switch len(data) {
	case 3:
		k1 ^= uint32(data[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(data[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(data[0])
		k1 *= c1_32
		k1 = bits.RotateLeft32(k1, 15)
		k1 *= c2_32
		h1 ^= k1
	}

	h1 ^= uint32(clen)

	h1 ^= h1 >> 16
	h1 *= 0x85ebca6b
	h1 ^= h1 >> 13
	h1 *= 0xc2b2ae35
	h1 ^= h1 >> 16

	return h1
}

// HashWord is MurmurHash3 specialized for a single 4-byte word, the shape of
// every key on the fast path (IPv4 address or zero-extended port).
func HashWord(key, seed uint32) uint32 {
	k1 := key * c1_32
	k1 = bits.RotateLeft32(k1, 15)
	k1 *= c2_32

	h1 := seed ^ k1
	h1 = bits.RotateLeft32(h1, 13)
	h1 = h1*5 + 0xe6546b64

	h1 ^= 4
	h1 ^= h1 >> 16
	h1 *= 0x85ebca6b
	h1 ^= h1 >> 13
	h1 *= 0xc2b2ae35
	h1 ^= h1 >> 16

	return h1
}

// rowSeed derives a fixed per-row hash seed. Seeds must be identical across
// all sketch instances so that per-worker sketches merge element-wise.
func rowSeed(row uint32) uint32 {
	return 0x9e3779b9*(row+1) ^ 0xdeadbeef
}
