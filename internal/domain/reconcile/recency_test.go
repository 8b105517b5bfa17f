package reconcile_test

import (
	"testing"

	"github.com/cavrolab/flowpanel/internal/domain/reconcile"
	"github.com/stretchr/testify/require"
)

func TestNewRecencyState(t *testing.T) {
	s := reconcile.NewRecencyState()
	require.Equal(t, reconcile.GroupVolume, s.Last)
	require.Equal(t, reconcile.GroupRate, s.SecondToLast)
}

func TestNextTarget(t *testing.T) {
	d, r, v := reconcile.GroupDuration, reconcile.GroupRate, reconcile.GroupVolume

	tests := []struct {
		name   string
		state  reconcile.RecencyState
		edited reconcile.Group
		want   reconcile.Group
	}{
		{"duration edit, rate untouched", reconcile.RecencyState{Last: v, SecondToLast: d}, d, r},
		{"duration edit, rate last", reconcile.RecencyState{Last: r, SecondToLast: v}, d, v},
		{"duration edit, rate second", reconcile.RecencyState{Last: v, SecondToLast: r}, d, v},
		{"rate edit, duration untouched", reconcile.RecencyState{Last: v, SecondToLast: r}, r, d},
		{"rate edit, duration last", reconcile.RecencyState{Last: d, SecondToLast: v}, r, v},
		{"rate edit, duration second", reconcile.RecencyState{Last: r, SecondToLast: d}, r, v},
		{"volume edit, duration untouched", reconcile.RecencyState{Last: v, SecondToLast: r}, v, d},
		{"volume edit, duration last", reconcile.RecencyState{Last: d, SecondToLast: r}, v, r},
		{"volume edit, duration second", reconcile.RecencyState{Last: v, SecondToLast: d}, v, r},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.NextTarget(tt.state, tt.edited)
			require.Equal(t, tt.want, got)
			require.NotEqual(t, tt.edited, got)
		})
	}
}

func TestRecencyState_Update(t *testing.T) {
	s := reconcile.NewRecencyState()

	s.Update(reconcile.GroupDuration)
	require.Equal(t, reconcile.RecencyState{Last: reconcile.GroupDuration, SecondToLast: reconcile.GroupVolume}, s)

	s.Update(reconcile.GroupRate)
	require.Equal(t, reconcile.RecencyState{Last: reconcile.GroupRate, SecondToLast: reconcile.GroupDuration}, s)
}

func TestRecencyState_RepeatedEditKeepsOrder(t *testing.T) {
	s := reconcile.RecencyState{Last: reconcile.GroupRate, SecondToLast: reconcile.GroupDuration}
	before := s

	for i := 0; i < 5; i++ {
		s.Update(reconcile.GroupRate)
		require.Equal(t, before, s)
		require.NotEqual(t, s.Last, s.SecondToLast)
	}
}

func TestRecencyState_AlwaysDistinct(t *testing.T) {
	groups := []reconcile.Group{reconcile.GroupDuration, reconcile.GroupRate, reconcile.GroupVolume}
	s := reconcile.NewRecencyState()
	for i := 0; i < 30; i++ {
		s.Update(groups[(i*7)%3])
		require.NotEqual(t, s.Last, s.SecondToLast)
	}
}
