package solve

import "sort"

// entry is one (row, col, value) contribution before assembly.
type entry struct {
	i, j int
	v    float64
}

// CSR is a square sparse matrix in compressed sparse row form.
type CSR struct {
	N      int
	RowPtr []int
	Col    []int
	Val    []float64
}

// assemble builds an n×n CSR matrix from contributions, summing duplicates.
func assemble(n int, es []entry) *CSR {
	sort.Slice(es, func(a, b int) bool {
		if es[a].i != es[b].i {
			return es[a].i < es[b].i
		}
		return es[a].j < es[b].j
	})

	m := &CSR{N: n, RowPtr: make([]int, n+1)}
	for k := 0; k < len(es); {
		e := es[k]
		v := 0.0
		for k < len(es) && es[k].i == e.i && es[k].j == e.j {
			v += es[k].v
			k++
		}
		m.Col = append(m.Col, e.j)
		m.Val = append(m.Val, v)
		m.RowPtr[e.i+1]++
	}
	for i := 0; i < n; i++ {
		m.RowPtr[i+1] += m.RowPtr[i]
	}
	return m
}

// MulVec computes dst = A·x.
func (m *CSR) MulVec(dst, x []float64) {
	for i := 0; i < m.N; i++ {
		var s float64
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			s += m.Val[k] * x[m.Col[k]]
		}
		dst[i] = s
	}
}

// Diag returns the diagonal of the matrix.
func (m *CSR) Diag() []float64 {
	d := make([]float64, m.N)
	for i := 0; i < m.N; i++ {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			if m.Col[k] == i {
				d[i] = m.Val[k]
			}
		}
	}
	return d
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int { return len(m.Val) }
