package util

const goldenGamma = 0x9e3779b97f4a7c15

// SplitMix64 is one step of the splitmix64 mixer.
func SplitMix64(x uint64) uint64 {
	x += goldenGamma
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// DeriveSeed returns the sub-seed for stream index under a parent seed.
// The result depends only on (parent, index).
func DeriveSeed(parent int64, index int) int64 {
	return int64(SplitMix64(uint64(parent) ^ (uint64(index) * goldenGamma)))
}
