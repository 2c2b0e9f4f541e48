package repository

import "math"

// baseTS anchors the score-encoding scheme. It is chosen far enough in the
// future that the fractional tie-break term stays within [0, 1) for the
// operating lifetime of the service; do not treat it as a recoverable
// submission timestamp.
const baseTS = 317265609600.0

// encodeScore folds a raw integer score and a submission time into a single
// float64 whose integer part is the raw score and whose fractional part
// breaks ties in favor of earlier submissions: for equal raw scores, an
// earlier nowSeconds yields a strictly larger encoded value.
func encodeScore(raw int64, nowSeconds float64) float64 {
	return float64(raw) + (baseTS-nowSeconds)/baseTS
}

// decodeScore recovers the raw integer score from an encoded value.
func decodeScore(encoded float64) int64 {
	return int64(math.Floor(encoded))
}
