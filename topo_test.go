package ponavail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConnect(t *testing.T, topo *Topology, parent, child NodeID, availa float64) {
	t.Helper()
	_, err := topo.Connect(parent, child, availa)
	require.NoError(t, err)
}

func TestRoleNames(t *testing.T) {
	for _, role := range []Role{Root, LeafPrimary, LeafAlternate, PassiveHub, ActiveHub} {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	parsed, err := ParseRole("Passive-Hub")
	require.NoError(t, err)
	assert.Equal(t, PassiveHub, parsed)

	_, err = ParseRole("splitter")
	assert.Error(t, err)
	assert.Equal(t, "role(9)", Role(9).String())

	assert.True(t, LeafAlternate.IsLeaf())
	assert.False(t, ActiveHub.IsLeaf())
	assert.True(t, ActiveHub.IsHub())
	assert.False(t, Root.IsHub())
}

func TestTopologyConnect(t *testing.T) {
	topo := CreateTopology("t")
	root, err := topo.AddRoot(0.99)
	require.NoError(t, err)
	_, err = topo.AddRoot(0.99)
	assert.Error(t, err, "second root")

	hub := topo.AddNode(PassiveHub, 0.9)
	leaf := topo.AddNode(LeafPrimary, 0.8)
	mustConnect(t, topo, root, hub, 0.95)
	mustConnect(t, topo, hub, leaf, 0.85)

	_, err = topo.Connect(root, leaf, 0.5)
	assert.ErrorContains(t, err, "already has parent")
	_, err = topo.Connect(hub, hub, 0.5)
	assert.ErrorContains(t, err, "self loop")
	_, err = topo.Connect(hub, root, 0.5)
	assert.ErrorContains(t, err, "root cannot have a parent")
	_, err = topo.Connect(hub, NodeID(17), 0.5)
	assert.ErrorContains(t, err, "unknown node")

	assert.Equal(t, 3, topo.NumNodes())
	assert.Equal(t, 2, topo.NumEdges())
	assert.Equal(t, root, topo.Root())
}

func TestTopologyQueries(t *testing.T) {
	topo := CreateTopology("t")
	root, _ := topo.AddRoot(0.99)
	hub := topo.AddNode(ActiveHub, 0.9)
	mustConnect(t, topo, root, hub, 0.95)
	first := topo.AddNode(LeafPrimary, 0.8)
	second := topo.AddNode(LeafAlternate, 0.7)
	mustConnect(t, topo, hub, first, 0.85)
	mustConnect(t, topo, hub, second, 0.75)

	_, err := topo.Upstream(root)
	assert.ErrorIs(t, err, ErrNoUpstream)

	up, err := topo.Upstream(second)
	require.NoError(t, err)
	assert.Equal(t, hub, up.Peer)
	assert.Equal(t, 0.75, up.Availa)

	down := topo.Downstream(hub)
	require.Len(t, down, 2)
	assert.Equal(t, first, down[0].Peer)
	assert.Equal(t, second, down[1].Peer)
	assert.Empty(t, topo.Downstream(first))

	nbrs := topo.Neighbours(hub)
	require.Len(t, nbrs, 3)
	assert.Equal(t, root, nbrs[2].Peer)

	assert.Equal(t, []NodeID{first, second}, topo.Terminals())
	assert.Equal(t, map[Role]int{Root: 1, ActiveHub: 1, LeafPrimary: 1, LeafAlternate: 1}, topo.CountRoles())
	assert.Equal(t, 2, topo.Depth(second))
	assert.Equal(t, 0, topo.Depth(root))
	assert.Nil(t, topo.Node(NodeID(-3)))
	assert.Nil(t, topo.Edge(EdgeID(5)))
}

func TestNameNodes(t *testing.T) {
	topo := CreateTopology("t")
	root, _ := topo.AddRoot(0.99)
	for idx := 0; idx < 8; idx++ {
		mustConnect(t, topo, root, topo.AddNode(LeafPrimary, 0.9), 0.9)
	}
	topo.NameNodes()
	assert.Equal(t, "v1", topo.Node(0).Name)
	assert.Equal(t, "v9", topo.Node(8).Name)

	mustConnect(t, topo, root, topo.AddNode(LeafPrimary, 0.9), 0.9)
	topo.NameNodes()
	assert.Equal(t, "v01", topo.Node(0).Name)
	assert.Equal(t, "v10", topo.Node(9).Name)
	assert.Equal(t, NodeID(9), topo.NodeByName("v10"))
	assert.Equal(t, NoNode, topo.NodeByName("v11"))
}
