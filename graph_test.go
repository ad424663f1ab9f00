package ponavail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGenerated(t *testing.T) {
	params := DefaultParams()
	params.Stages = 3
	topo, err := GeneratePON(params, NewRandSource(3))
	require.NoError(t, err)
	assert.NoError(t, topo.Validate())
}

func TestValidateViolations(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *Topology
		want  string
	}{
		{
			name: "empty",
			build: func(t *testing.T) *Topology {
				return CreateTopology("empty")
			},
			want: "is empty",
		},
		{
			name: "hub without children",
			build: func(t *testing.T) *Topology {
				topo := CreateTopology("t")
				root, _ := topo.AddRoot(0.9)
				mustConnect(t, topo, root, topo.AddNode(PassiveHub, 0.9), 0.9)
				return topo
			},
			want: "has no children",
		},
		{
			name: "leaf with a child",
			build: func(t *testing.T) *Topology {
				topo := CreateTopology("t")
				root, _ := topo.AddRoot(0.9)
				leaf := topo.AddNode(LeafPrimary, 0.9)
				mustConnect(t, topo, root, leaf, 0.9)
				mustConnect(t, topo, leaf, topo.AddNode(LeafPrimary, 0.9), 0.9)
				return topo
			},
			want: "has 1 children",
		},
		{
			name: "node without parent",
			build: func(t *testing.T) *Topology {
				topo := CreateTopology("t")
				root, _ := topo.AddRoot(0.9)
				mustConnect(t, topo, root, topo.AddNode(LeafPrimary, 0.9), 0.9)
				topo.AddNode(LeafPrimary, 0.9)
				return topo
			},
			want: "has no parent",
		},
		{
			name: "availability out of range",
			build: func(t *testing.T) *Topology {
				topo := CreateTopology("t")
				root, _ := topo.AddRoot(1.2)
				mustConnect(t, topo, root, topo.AddNode(LeafPrimary, 0.9), 0)
				return topo
			},
			want: "outside (0,1]",
		},
		{
			name: "cycle away from the root",
			build: func(t *testing.T) *Topology {
				topo := CreateTopology("t")
				root, _ := topo.AddRoot(0.9)
				mustConnect(t, topo, root, topo.AddNode(LeafPrimary, 0.9), 0.9)
				a := topo.AddNode(PassiveHub, 0.9)
				b := topo.AddNode(PassiveHub, 0.9)
				mustConnect(t, topo, a, b, 0.9)
				mustConnect(t, topo, b, a, 0.9)
				return topo
			},
			want: "not reachable from the root",
		},
		{
			name: "two roots",
			build: func(t *testing.T) *Topology {
				topo := CreateTopology("t")
				root, _ := topo.AddRoot(0.9)
				mustConnect(t, topo, root, topo.AddNode(LeafPrimary, 0.9), 0.9)
				topo.AddNode(Root, 0.9)
				return topo
			},
			want: "2 roots",
		},
		{
			name: "unrecognized role",
			build: func(t *testing.T) *Topology {
				topo := CreateTopology("t")
				root, _ := topo.AddRoot(0.9)
				mustConnect(t, topo, root, topo.AddNode(Role(8), 0.9), 0.9)
				return topo
			},
			want: "unrecognized role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build(t).Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvariant)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateCycleDetected(t *testing.T) {
	topo := CreateTopology("t")
	root, _ := topo.AddRoot(0.9)
	mustConnect(t, topo, root, topo.AddNode(LeafPrimary, 0.9), 0.9)
	a := topo.AddNode(ActiveHub, 0.9)
	b := topo.AddNode(ActiveHub, 0.9)
	mustConnect(t, topo, a, b, 0.9)
	mustConnect(t, topo, b, a, 0.9)

	err := topo.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
