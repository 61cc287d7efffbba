package internal

// JumpHash maps key to a bucket in [0, numBuckets) with Google's "Jump"
// consistent hash (https://arxiv.org/abs/1406.2294), as implemented by
// github.com/dgryski/go-jump.
//
// Growing numBuckets from n to n+1 moves only 1/(n+1) of the keys.
// Returns 0 when numBuckets <= 0.
func JumpHash(key uint64, numBuckets int) int {
	if numBuckets <= 0 {
		return 0
	}

	var b, j int64 = -1, 0
	for j < int64(numBuckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}

	return int(b)
}
