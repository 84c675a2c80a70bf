// Package fec implements a systematic Reed-Solomon erasure codec over
// GF(2^8). A (k, n) codec expands k data shards into n total shards;
// any k surviving shards reconstruct the originals. The encode matrix is
// deterministic given (k, n), so shards produced by one instance decode
// on any implementation that agrees on the parameters and the primitive
// polynomial.
package fec

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrInvalidParameters reports impossible (k, n) pairs or mismatched
	// shard lengths.
	ErrInvalidParameters = errors.New("fec: invalid parameters")

	// ErrUnrecoverable reports a decode matrix that cannot be inverted,
	// e.g. a duplicate shard index.
	ErrUnrecoverable = errors.New("fec: unrecoverable shard set")

	// ErrShuffleConflict reports an index vector whose cycle cannot be
	// resolved; the shard set is corrupt.
	ErrShuffleConflict = errors.New("fec: conflicting shard indexes")

	// ErrCancelled reports a call interrupted by Cancel.
	ErrCancelled = errors.New("fec: cancelled")
)

// FEC is a (k, n) erasure codec. After construction the instance is
// read-only except for the cancel flag, so concurrent Encode calls on one
// instance are safe. Decode mutates its arguments in place and must be
// serialized externally.
type FEC struct {
	k, n int

	// encMatrix is the n×k systematic encode matrix, row-major.
	encMatrix []byte

	cancelled atomic.Bool
}

// New builds a codec with k data shards out of n total,
// 1 <= k <= n <= 256.
func New(k, n int) (*FEC, error) {
	if k < 1 || k > n || n > gfSize+1 {
		return nil, fmt.Errorf("%w: k=%d n=%d", ErrInvalidParameters, k, n)
	}

	return &FEC{
		k:         k,
		n:         n,
		encMatrix: createEncodeMatrix(k, n),
	}, nil
}

// K returns the data shard count.
func (f *FEC) K() int { return f.k }

// N returns the total shard count.
func (f *FEC) N() int { return f.n }

// Cancel aborts the Encode or Decode in flight on this instance; the
// interrupted call returns ErrCancelled and its output buffers hold
// partial codeword content. The flag is cleared when the next call
// starts.
func (f *FEC) Cancel() {
	f.cancelled.Store(true)
}

// Encode fills repair[j] with encode-matrix row index[j] applied to the k
// source shards. Rows below k are verbatim copies of the matching source
// shard; rows k..n-1 are parity. All shards must share one length.
func (f *FEC) Encode(src, repair [][]byte, index []int) error {
	f.cancelled.Store(false)

	if len(src) != f.k {
		return fmt.Errorf("%w: %d source shards, want %d", ErrInvalidParameters, len(src), f.k)
	}
	if len(repair) != len(index) {
		return fmt.Errorf("%w: %d repair shards for %d indexes", ErrInvalidParameters, len(repair), len(index))
	}

	size, err := shardSize(src)
	if err != nil {
		return err
	}
	for _, shard := range repair {
		if len(shard) != size {
			return fmt.Errorf("%w: mismatched repair shard length", ErrInvalidParameters)
		}
	}
	for _, idx := range index {
		if idx < 0 || idx >= f.n {
			return fmt.Errorf("%w: shard index %d out of range [0,%d)", ErrInvalidParameters, idx, f.n)
		}
	}

	for row := range repair {
		if f.cancelled.Load() {
			return ErrCancelled
		}

		r := index[row]
		if r < f.k {
			copy(repair[row], src[r])
			continue
		}

		matrixRow := f.encMatrix[r*f.k : (r+1)*f.k]
		clear(repair[row])
		for col := 0; col < f.k; col++ {
			mulAdd(repair[row], src[col], matrixRow[col])
		}
	}

	return nil
}

// Decode reconstructs the original data shards in place. pkts holds k
// equal-length shards and index[i] names the encode-matrix row pkts[i]
// was produced from; values must be distinct and in [0, n). On success
// pkts[i] is original shard i and index[i] == i for every i.
func (f *FEC) Decode(pkts [][]byte, index []int) error {
	f.cancelled.Store(false)

	if len(pkts) != f.k || len(index) != f.k {
		return fmt.Errorf("%w: %d shards with %d indexes, want %d of each", ErrInvalidParameters, len(pkts), len(index), f.k)
	}

	size, err := shardSize(pkts)
	if err != nil {
		return err
	}
	for _, idx := range index {
		if idx < 0 || idx >= f.n {
			return fmt.Errorf("%w: shard index %d out of range [0,%d)", ErrInvalidParameters, idx, f.n)
		}
	}

	if err := shuffle(pkts, index, f.k); err != nil {
		return err
	}

	decMatrix, err := f.createDecodeMatrix(index)
	if err != nil {
		return err
	}

	// Reconstruct every parity-bearing slot into scratch first; the
	// parity shards stay intact as inputs until all rows are done.
	tmp := make([][]byte, f.k)
	for row := 0; row < f.k; row++ {
		if f.cancelled.Load() {
			return ErrCancelled
		}
		if index[row] < f.k {
			continue
		}

		buf := make([]byte, size)
		matrixRow := decMatrix[row*f.k : (row+1)*f.k]
		for col := 0; col < f.k; col++ {
			mulAdd(buf, pkts[col], matrixRow[col])
		}
		tmp[row] = buf
	}

	for row := 0; row < f.k; row++ {
		if tmp[row] != nil {
			copy(pkts[row], tmp[row])
			index[row] = row
		}
	}

	return nil
}

// shuffle swaps shards until every surviving data shard sits at its
// original slot, so the decode matrix rows line up. Parity shards are
// left in the erased slots.
func shuffle(pkts [][]byte, index []int, k int) error {
	for i := 0; i < k; {
		if index[i] >= k || index[i] == i {
			i++
			continue
		}

		c := index[i]
		if index[c] == c {
			return fmt.Errorf("%w: duplicate index %d", ErrShuffleConflict, c)
		}

		index[i], index[c] = index[c], index[i]
		pkts[i], pkts[c] = pkts[c], pkts[i]
	}

	return nil
}

// createDecodeMatrix gathers encode-matrix row index[i] into row i of a
// k×k matrix and inverts it.
func (f *FEC) createDecodeMatrix(index []int) ([]byte, error) {
	m := make([]byte, f.k*f.k)
	for i := 0; i < f.k; i++ {
		copy(m[i*f.k:(i+1)*f.k], f.encMatrix[index[i]*f.k:(index[i]+1)*f.k])
	}

	if err := invertMatrix(m, f.k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecoverable, err)
	}

	return m, nil
}

func shardSize(shards [][]byte) (int, error) {
	if len(shards) == 0 {
		return 0, fmt.Errorf("%w: no shards", ErrInvalidParameters)
	}

	size := len(shards[0])
	for _, s := range shards[1:] {
		if len(s) != size {
			return 0, fmt.Errorf("%w: mismatched shard lengths", ErrInvalidParameters)
		}
	}

	return size, nil
}
