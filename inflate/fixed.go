package inflate

import "sync"

var (
	fixedOnce          sync.Once
	fixedLiteralLength *CanonicalCode
	fixedDistance      *CanonicalCode
)

// fixedCodes returns the two static Huffman tables used by block type 1
// (RFC 1951 section 3.2.6). They are computed once and shared read-only by
// every decode run.
func fixedCodes() (litLen, dist *CanonicalCode) {
	fixedOnce.Do(func() {
		llCodeLens := make([]int, 288)
		for i := range llCodeLens {
			switch {
			case i < 144:
				llCodeLens[i] = 8
			case i < 256:
				llCodeLens[i] = 9
			case i < 280:
				llCodeLens[i] = 7
			default:
				llCodeLens[i] = 8
			}
		}

		distCodeLens := make([]int, 32)
		for i := range distCodeLens {
			distCodeLens[i] = 5
		}

		var err error

		// The inputs are constants that form full trees; construction
		// cannot fail.
		if fixedLiteralLength, err = NewCanonicalCode(llCodeLens); err != nil {
			panic(err)
		}

		if fixedDistance, err = NewCanonicalCode(distCodeLens); err != nil {
			panic(err)
		}
	})

	return fixedLiteralLength, fixedDistance
}
