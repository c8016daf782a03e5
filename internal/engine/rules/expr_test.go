package rules

import (
	"fmt"
	"testing"

	"github.com/danmuck/xformctl/internal/model"
	"github.com/danmuck/xformctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(schemaName, typeName string) (string, error) {
	if schemaName != "T" {
		return "", fmt.Errorf("unknown schema %q", schemaName)
	}
	return model.TypeID("urn:t", typeName), nil
}

func sampleNode() *model.Node {
	n := model.NewNode("urn:t#Box")
	_ = n.Set("label", "box")
	a := n.AddChild(model.NewNode("urn:t#Part"))
	_ = a.Set("weight", 2)
	b := n.AddChild(model.NewNode("urn:t#Part"))
	_ = b.Set("weight", 1.5)
	n.AddChild(model.NewNode("urn:t#Other"))
	n.AddReference(a)
	n.AddReference(n)
	return n
}

func TestCompileAndEvaluate(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		src  string
		want any
	}{
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"1.25", 1.25},
		{"1e3", 1000.0},
		{`"quoted \"text\""`, `quoted "text"`},
		{"'single'", "single"},
		{"true", true},
		{"false", false},
		{"attr(label)", "box"},
		{`attr("label")`, "box"},
		{"type()", "urn:t#Box"},
		{"count(children)", int64(3)},
		{"count(children, T!Part)", int64(2)},
		{"count( refs , T!Box )", int64(1)},
		{"count(refs)", int64(2)},
		{"sum(children, weight)", 3.5},
	}
	n := sampleNode()
	for _, tc := range cases {
		e, err := compile(tc.src, testResolver)
		require.NoError(t, err, tc.src)
		got, err := e.eval(n)
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.want, got, tc.src)
	}
}

func TestSumOfIntegersStaysInteger(t *testing.T) {
	testlog.Start(t)
	n := model.NewNode("urn:t#Box")
	for _, w := range []int{1, 2, 3} {
		_ = n.AddChild(model.NewNode("urn:t#Part")).Set("weight", w)
	}
	e, err := compile("sum(children, weight)", testResolver)
	require.NoError(t, err)
	got, err := e.eval(n)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)
}

func TestCompileErrors(t *testing.T) {
	testlog.Start(t)
	for _, src := range []string{
		"",
		"unknown()",
		"count(",
		"count(parents)",
		"count(children, X!Part)",
		"count(children, T)",
		"sum(refs, weight)",
		"attr(label) extra",
		`"unterminated`,
		"-",
		"#",
	} {
		_, err := compile(src, testResolver)
		assert.ErrorIs(t, err, ErrExpression, "src=%q", src)
	}
}

func TestEvaluationErrors(t *testing.T) {
	testlog.Start(t)
	n := sampleNode()
	_ = n.Children[2].Set("weight", "heavy")

	for _, src := range []string{"attr(missing)", "sum(children, weight)"} {
		e, err := compile(src, testResolver)
		require.NoError(t, err)
		_, err = e.eval(n)
		assert.ErrorIs(t, err, ErrEvaluation, src)
	}
}
