package fec

import (
	"bytes"
	"errors"
)

var errSingularMatrix = errors.New("singular matrix")

// createEncodeMatrix builds the systematic n×k encode matrix: the top k
// rows are the identity, the bottom n-k rows are Vandermonde-derived
// parity rows. Any k rows of the result are linearly independent.
func createEncodeMatrix(k, n int) []byte {
	enc := make([]byte, n*k)
	tmp := make([]byte, n*k)

	// Start from a Vandermonde matrix of alpha^(row*col). The first row
	// cannot come from the exp table: it is the special case [1 0 ... 0].
	tmp[0] = 1
	for row := 0; row < n-1; row++ {
		for col := 0; col < k; col++ {
			tmp[(row+1)*k+col] = gfExp[modnn(row*col)]
		}
	}

	// Invert the top k×k block, multiply the remaining rows by the
	// inverse, and put the identity on top.
	invertVandermonde(tmp, k)
	matMul(tmp[k*k:], tmp, enc[k*k:], n-k, k, k)

	for col := 0; col < k; col++ {
		enc[col*k+col] = 1
	}

	return enc
}

// matMul computes c = a·b where a is n×k, b is k×m and c is n×m.
func matMul(a, b, c []byte, n, k, m int) {
	for row := 0; row < n; row++ {
		for col := 0; col < m; col++ {
			var acc byte
			for i, posB := 0, col; i < k; i, posB = i+1, posB+m {
				acc ^= gfMul(a[row*k+i], b[posB])
			}
			c[row*m+col] = acc
		}
	}
}

// invertMatrix inverts a k×k matrix in place using Gauss-Jordan
// elimination with full pivoting. Row and column swaps are recorded in
// indxr/indxc and the column swaps undone in reverse at the end.
func invertMatrix(src []byte, k int) error {
	indxc := make([]int, k)
	indxr := make([]int, k)
	ipiv := make([]int, k)
	idRow := make([]byte, k)

	for col := 0; col < k; col++ {
		irow, icol := -1, -1
		found := false

		// Prefer a pivot on the diagonal, look elsewhere if it is zero.
		if ipiv[col] != 1 && src[col*k+col] != 0 {
			irow, icol = col, col
			found = true
		}

		if !found {
		search:
			for row := 0; row < k; row++ {
				if ipiv[row] == 1 {
					continue
				}
				for ix := 0; ix < k; ix++ {
					switch {
					case ipiv[ix] == 0:
						if src[row*k+ix] != 0 {
							irow, icol = row, ix
							found = true
							break search
						}
					case ipiv[ix] > 1:
						return errSingularMatrix
					}
				}
			}
		}
		if !found {
			return errSingularMatrix
		}

		ipiv[icol]++

		if irow != icol {
			for ix := 0; ix < k; ix++ {
				src[irow*k+ix], src[icol*k+ix] = src[icol*k+ix], src[irow*k+ix]
			}
		}
		indxr[col] = irow
		indxc[col] = icol

		pivotRow := src[icol*k : (icol+1)*k]
		c := pivotRow[icol]
		if c == 0 {
			return errSingularMatrix
		}
		if c != 1 {
			c = gfInverse[c]
			pivotRow[icol] = 1
			for ix := 0; ix < k; ix++ {
				pivotRow[ix] = gfMul(c, pivotRow[ix])
			}
		}

		// Clear the pivot column from every other row, unless the pivot row
		// is an identity row and the mul-adds would all be no-ops.
		idRow[icol] = 1
		if !bytes.Equal(pivotRow, idRow) {
			for ix := 0; ix < k; ix++ {
				if ix == icol {
					continue
				}
				row := src[ix*k : (ix+1)*k]
				c := row[icol]
				row[icol] = 0
				mulAdd(row, pivotRow, c)
			}
		}
		idRow[icol] = 0
	}

	for col := k - 1; col >= 0; col-- {
		if indxr[col] != indxc[col] {
			for row := 0; row < k; row++ {
				src[row*k+indxc[col]], src[row*k+indxr[col]] = src[row*k+indxr[col]], src[row*k+indxc[col]]
			}
		}
	}

	return nil
}

// invertVandermonde inverts the k×k Vandermonde matrix held in src in
// place. Much faster than invertMatrix: the inverse follows from the
// coefficients of P(x) = prod(x - p_i) by synthetic division.
func invertVandermonde(src []byte, k int) {
	if k == 1 {
		return
	}

	c := make([]byte, k)
	b := make([]byte, k)
	p := make([]byte, k)

	for i, j := 0, 1; i < k; i, j = i+1, j+k {
		c[i] = 0
		p[i] = src[j]
	}

	// Build the coefficients recursively: P_i = x·P_{i-1} - p_i·P_{i-1},
	// with c[k] = 1 implicit. Negation is identity in GF(2^m).
	c[k-1] = p[0]
	for i := 1; i < k; i++ {
		pi := p[i]
		for j := k - 1 - (i - 1); j < k-1; j++ {
			c[j] ^= gfMul(pi, c[j+1])
		}
		c[k-1] ^= pi
	}

	for row := 0; row < k; row++ {
		xx := p[row]
		t := byte(1)
		b[k-1] = 1
		for i := k - 2; i >= 0; i-- {
			b[i] = c[i+1] ^ gfMul(xx, b[i+1])
			t = gfMul(xx, t) ^ b[i]
		}
		for col := 0; col < k; col++ {
			src[col*k+row] = gfMul(gfInverse[t], b[col])
		}
	}
}
