// Copyright (C) 2017 ScyllaDB

package dht

import (
	"fmt"
	"math"
	"math/big"
)

// Full token range of the Murmur3 partitioner.
const (
	Murmur3MinToken = int64(math.MinInt64)
	Murmur3MaxToken = int64(math.MaxInt64)
)

// TokenRange specifies a token range [StartToken, EndToken), StartToken is
// always less than EndToken.
type TokenRange struct {
	StartToken int64 `json:"start_token"`
	EndToken   int64 `json:"end_token"`
}

func (r TokenRange) String() string {
	return fmt.Sprintf("%d:%d", r.StartToken, r.EndToken)
}

// SplitEvenly partitions r into exactly n contiguous non-overlapping
// sub-ranges that cover it completely. Sub-range widths differ by at most one
// token, the remainder tokens go to the earliest sub-ranges. For n <= 1, or
// when r has fewer than n tokens, r is returned as the only element.
//
// The result is deterministic, sub-ranges are emitted in partition order.
func SplitEvenly(r TokenRange, n int) []TokenRange {
	width := rangeWidth(r)

	if n <= 1 || width.Cmp(big.NewInt(int64(n))) < 0 {
		return []TokenRange{r}
	}

	var (
		step = new(big.Int)
		rem  = new(big.Int)
	)
	step.DivMod(width, big.NewInt(int64(n)), rem)

	var (
		out   = make([]TokenRange, 0, n)
		start = big.NewInt(r.StartToken)
		end   = new(big.Int)
		one   = big.NewInt(1)
	)
	for i := 0; i < n; i++ {
		end.Add(start, step)
		if int64(i) < rem.Int64() {
			end.Add(end, one)
		}
		out = append(out, TokenRange{StartToken: start.Int64(), EndToken: end.Int64()})
		start.Set(end)
	}
	// guard against rounding drift
	out[n-1].EndToken = r.EndToken

	return out
}

// rangeWidth returns the number of tokens in r. The result may not fit in
// int64 for ranges spanning most of the ring.
func rangeWidth(r TokenRange) *big.Int {
	w := big.NewInt(r.EndToken)
	return w.Sub(w, big.NewInt(r.StartToken))
}
