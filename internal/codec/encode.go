package codec

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/danmuck/xformctl/internal/model"
	"gopkg.in/yaml.v3"
)

const (
	keyRoots    = "roots"
	keyType     = "type"
	keyID       = "id"
	keyAttrs    = "attrs"
	keyChildren = "children"
	keyRefs     = "refs"
)

// Encode serializes roots and everything contained in them. The output is
// deterministic: children and references keep their order and attribute
// keys are sorted.
func Encode(roots []*model.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeTo(&buf, roots); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo writes the encoded form of roots to w.
func EncodeTo(w io.Writer, roots []*model.Node) error {
	doc, err := encodeDocument(roots)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return &CodecError{Msg: "write document", Err: err}
	}
	if err := enc.Close(); err != nil {
		return &CodecError{Msg: "write document", Err: err}
	}
	return nil
}

type encodeTask struct {
	node *model.Node
	path string
	out  *yaml.Node
}

type pendingRefs struct {
	owner   string
	out     *yaml.Node
	targets []*model.Node
}

func encodeDocument(roots []*model.Node) (*yaml.Node, error) {
	paths := make(map[*model.Node]string)
	rootSeq := sequenceNode(false)
	stack := make([]encodeTask, 0, len(roots))
	for i, root := range roots {
		path := childPath("", i)
		if root == nil {
			return nil, errorf("root %s is nil", path)
		}
		out := mappingNode()
		rootSeq.Content = append(rootSeq.Content, out)
		stack = append(stack, encodeTask{node: root, path: path, out: out})
	}

	var pending []pendingRefs
	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if prev, seen := paths[task.node]; seen {
			return nil, errorf("node %s is already contained at %s", task.path, prev)
		}
		paths[task.node] = task.path

		n := task.node
		if strings.TrimSpace(n.Type) == "" {
			return nil, errorf("node %s has no type", task.path)
		}
		appendPair(task.out, keyType, stringNode(n.Type))

		if len(n.Attributes) > 0 {
			attrs := mappingNode()
			for _, name := range n.AttributeNames() {
				value, err := encodeValue(n.Attributes[name])
				if err != nil {
					return nil, &CodecError{Msg: fmt.Sprintf("node %s attribute %q", task.path, name), Err: err}
				}
				appendPair(attrs, name, value)
			}
			appendPair(task.out, keyAttrs, attrs)
		}

		if len(n.Children) > 0 {
			children := sequenceNode(false)
			for i, child := range n.Children {
				path := childPath(task.path, i)
				if child == nil {
					return nil, errorf("node %s is nil", path)
				}
				out := mappingNode()
				children.Content = append(children.Content, out)
				stack = append(stack, encodeTask{node: child, path: path, out: out})
			}
			appendPair(task.out, keyChildren, children)
		}

		if len(n.References) > 0 {
			refs := sequenceNode(true)
			appendPair(task.out, keyRefs, refs)
			pending = append(pending, pendingRefs{owner: task.path, out: refs, targets: n.References})
		}
	}

	for _, p := range pending {
		for i, target := range p.targets {
			path, ok := paths[target]
			if !ok {
				return nil, errorf("node %s reference %d points outside the encoded graph", p.owner, i)
			}
			p.out.Content = append(p.out.Content, stringNode(path))
		}
	}

	top := mappingNode()
	appendPair(top, keyRoots, rootSeq)
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{top}}, nil
}

func encodeValue(v any) (*yaml.Node, error) {
	v, err := model.NormalizeValue(v)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case string:
		if !utf8.ValidString(x) {
			return nil, fmt.Errorf("%w: invalid UTF-8 string", model.ErrUnsupportedValue)
		}
		return stringNode(x), nil
	case int64:
		return scalarNode("!!int", strconv.FormatInt(x, 10)), nil
	case float64:
		return scalarNode("!!float", formatFloat(x)), nil
	case bool:
		return scalarNode("!!bool", strconv.FormatBool(x)), nil
	case []string:
		for i, item := range x {
			if !utf8.ValidString(item) {
				return nil, fmt.Errorf("%w: invalid UTF-8 string at element %d", model.ErrUnsupportedValue, i)
			}
		}
		return listNode(x, stringNode), nil
	case []int64:
		return listNode(x, func(i int64) *yaml.Node { return scalarNode("!!int", strconv.FormatInt(i, 10)) }), nil
	case []float64:
		return listNode(x, func(f float64) *yaml.Node { return scalarNode("!!float", formatFloat(f)) }), nil
	case []bool:
		return listNode(x, func(b bool) *yaml.Node { return scalarNode("!!bool", strconv.FormatBool(b)) }), nil
	default:
		return nil, fmt.Errorf("%w: %T", model.ErrUnsupportedValue, v)
	}
}

// formatFloat keeps a decimal point or exponent so the value reads back as
// a float rather than an int.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func childPath(parent string, index int) string {
	return parent + "/" + strconv.Itoa(index)
}

func listNode[T any](items []T, scalar func(T) *yaml.Node) *yaml.Node {
	seq := sequenceNode(true)
	for _, item := range items {
		seq.Content = append(seq.Content, scalar(item))
	}
	return seq
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, stringNode(key), value)
}

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequenceNode(flow bool) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if flow {
		n.Style = yaml.FlowStyle
	}
	return n
}

// stringNode double-quotes multi-line strings; literal blocks made only of
// line breaks lose their trailing newlines on the way back.
func stringNode(s string) *yaml.Node {
	n := scalarNode("!!str", s)
	if strings.Contains(s, "\n") {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
