package randutil

import (
	"crypto/sha256"
	"encoding/binary"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// FromCommitment returns a *rand.Rand whose stream is fixed by a round
// commitment string. The same commitment always yields the same stream.
func FromCommitment(commitment string) *rand.Rand {
	sum := sha256.Sum256([]byte(commitment))
	hi := binary.BigEndian.Uint64(sum[0:8]) ^ binary.BigEndian.Uint64(sum[16:24])
	lo := binary.BigEndian.Uint64(sum[8:16]) ^ binary.BigEndian.Uint64(sum[24:32])
	return rand.New(rand.NewPCG(mix(hi), mix(lo+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
