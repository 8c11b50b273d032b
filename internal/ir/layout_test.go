package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildLayout(t *testing.T) {
	m := singlePointModel()
	m.Layout = Layout{}

	require.NoError(t, m.RebuildLayout())
	assert.Equal(t, Layout{
		B:     []int{fxB},
		Z:     [][]int{{fxZ}},
		T:     [][]int{{fxT}, {fxRidgeT}},
		J:     [][]int{{fxJ}},
		Eps:   [][]int{{fxEps}},
		EpsSq: [][]int{{fxEpsSq}},
		Y:     fxY,
	}, m.Layout)
}

func TestRebuildLayoutIgnoresOrder(t *testing.T) {
	m := singlePointModel()
	m.Variables[fxB], m.Variables[fxY] = m.Variables[fxY], m.Variables[fxB]

	require.NoError(t, m.RebuildLayout())
	assert.Equal(t, []int{fxY}, m.Layout.B)
	assert.Equal(t, fxB, m.Layout.Y)
}

func TestRebuildLayoutErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Model)
		want   string
	}{
		{
			name:   "duplicate",
			mutate: func(m *Model) { m.Variables = append(m.Variables, m.Variables[fxB]) },
			want:   "duplicate selector",
		},
		{
			name:   "missing objective",
			mutate: func(m *Model) { m.Variables = m.Variables[:fxY] },
			want:   "missing objective",
		},
		{
			name:   "epigraph in ridge row",
			mutate: func(m *Model) { m.Variables[fxT].I = 2 },
			want:   "out of range",
		},
		{
			name:   "ridge epigraph in point row",
			mutate: func(m *Model) { m.Variables[fxRidgeT].I = 1 },
			want:   "out of range",
		},
		{
			name:   "certificate column",
			mutate: func(m *Model) { m.Variables[fxJ].J = 2 },
			want:   "out of range",
		},
		{
			name:   "unknown role",
			mutate: func(m *Model) { m.Variables[fxEps].Role = "bogus" },
			want:   "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := singlePointModel()
			before := m.Layout
			tt.mutate(m)

			err := m.RebuildLayout()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, before, m.Layout, "a failed rebuild keeps the old layout")
		})
	}
}
