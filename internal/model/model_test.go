package model

import (
	"math"
	"testing"

	"github.com/danmuck/xformctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleForms(t *testing.T) {
	testlog.Start(t)
	cases := map[string]Role{
		"input": RoleInput, "IN": RoleInput,
		"output": RoleOutput, "out": RoleOutput,
		"inout": RoleInOut, "in_out": RoleInOut, "in-out": RoleInOut,
	}
	for raw, want := range cases {
		got, err := ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseRole("sideways")
	require.Error(t, err)
}

func TestRoleWritable(t *testing.T) {
	testlog.Start(t)
	assert.False(t, RoleInput.Writable())
	assert.True(t, RoleOutput.Writable())
	assert.True(t, RoleInOut.Writable())
	assert.False(t, Role(0).Valid())
}

func TestNormalizeValue(t *testing.T) {
	testlog.Start(t)
	v, err := NormalizeValue(3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	v, err = NormalizeValue([]any{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, v)

	_, err = NormalizeValue([]any{1, "two"})
	require.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = NormalizeValue(map[string]int{})
	require.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = NormalizeValue([]any{[]any{1}})
	require.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestNormalizeValueWidensSizedNumbers(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		in   any
		want any
	}{
		{int8(-3), int64(-3)},
		{int16(300), int64(300)},
		{uint(7), int64(7)},
		{uint8(255), int64(255)},
		{uint16(65535), int64(65535)},
		{uint32(4), int64(4)},
		{uint64(math.MaxInt64), int64(math.MaxInt64)},
		{float32(1.5), 1.5},
		{[]int32{1, -2}, []int64{1, -2}},
		{[]float32{0.5, 2}, []float64{0.5, 2}},
	}
	for _, tc := range cases {
		got, err := NormalizeValue(tc.in)
		require.NoError(t, err, "%T", tc.in)
		assert.Equal(t, tc.want, got, "%T", tc.in)
	}

	_, err := NormalizeValue(uint64(math.MaxInt64) + 1)
	require.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestSplitTypeID(t *testing.T) {
	testlog.Start(t)
	ns, name := SplitTypeID("urn:composed#Part")
	assert.Equal(t, "urn:composed", ns)
	assert.Equal(t, "Part", name)

	ns, name = SplitTypeID("Part")
	assert.Empty(t, ns)
	assert.Equal(t, "Part", name)
	assert.Equal(t, "urn:composed#Part", TypeID("urn:composed", "Part"))
}

func TestWalkPreorderAndEarlyStop(t *testing.T) {
	testlog.Start(t)
	root := NewNode("t#A")
	b := root.AddChild(NewNode("t#B"))
	b.AddChild(NewNode("t#C"))
	root.AddChild(NewNode("t#D"))

	var seen []string
	Walk([]*Node{root}, func(n *Node) bool {
		seen = append(seen, n.Type)
		return true
	})
	assert.Equal(t, []string{"t#A", "t#B", "t#C", "t#D"}, seen)

	seen = nil
	Walk([]*Node{root}, func(n *Node) bool {
		seen = append(seen, n.Type)
		return n.Type != "t#B"
	})
	assert.Equal(t, []string{"t#A", "t#B"}, seen)
	assert.Equal(t, 4, Count([]*Node{root}))
}

func buildCyclic(name string) []*Node {
	root := NewNode("t#Root")
	_ = root.Set("name", name)
	child := root.AddChild(NewNode("t#Leaf"))
	child.AddReference(root)
	root.AddReference(root)
	return []*Node{root}
}

func TestIsomorphicWithCycles(t *testing.T) {
	testlog.Start(t)
	assert.True(t, Isomorphic(buildCyclic("x"), buildCyclic("x")))
	assert.False(t, Isomorphic(buildCyclic("x"), buildCyclic("y")))

	a := buildCyclic("x")
	b := buildCyclic("x")
	b[0].Children[0].References[0] = b[0].Children[0]
	assert.False(t, Isomorphic(a, b))
}

func TestIsomorphicRejectsDanglingReference(t *testing.T) {
	testlog.Start(t)
	a := buildCyclic("x")
	b := buildCyclic("x")
	outside := NewNode("t#Root")
	a[0].References[0] = outside
	b[0].References[0] = outside
	assert.False(t, Isomorphic(a, b))
}
