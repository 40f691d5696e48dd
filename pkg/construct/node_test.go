package construct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRoot struct {
	node *Node
}

func (r *testRoot) Node() *Node { return r.node }

func newTestRoot() *testRoot {
	r := &testRoot{}
	r.node = NewRoot(r)
	return r
}

func TestNewNode(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	root := newTestRoot()
	stack, err := New(root, "Stack")
	require.NoError(err)
	table, err := New(stack, "Table")
	require.NoError(err)
	replica, err := New(table, "Replicaus-east-1")
	require.NoError(err)

	assert.Equal("Stack/Table/Replicaus-east-1", replica.Node().Path())
	assert.Equal(table.Node(), replica.Node().Scope())
	assert.Equal([]*Node{root.node, stack.node, table.node, replica.node}, replica.Node().Scopes())
	assert.Equal(table.Node(), stack.Node().TryFindChild("Table"))
	assert.Len(stack.Node().FindAll(), 3)

	found := replica.Node().FindAncestor(func(c Construct) bool { return c == stack })
	assert.Equal(stack, found)
	assert.Nil(replica.Node().FindAncestor(func(c Construct) bool { return false }))
}

func TestNewNode_Errors(t *testing.T) {
	root := newTestRoot()
	stack, err := New(root, "Stack")
	require.NoError(t, err)

	_, err = New(stack, "Table")
	require.NoError(t, err)

	_, err = New(stack, "Table")
	var verr *ValidationError
	if assert.ErrorAs(t, err, &verr) {
		assert.Equal(t, "Stack", verr.Path)
		assert.Contains(t, verr.Message, `"Table"`)
	}

	_, err = New(stack, "")
	assert.Error(t, err)

	_, err = New(nil, "x")
	assert.Error(t, err)
}

func TestNewNode_SlashInID(t *testing.T) {
	root := newTestRoot()
	c, err := New(root, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a--b", c.Node().ID())
}

func TestMakeLogicalID(t *testing.T) {
	tests := []struct {
		name       string
		components []string
		want       string
	}{
		{
			name:       "single component has no hash",
			components: []string{"My-Table"},
			want:       "MyTable",
		},
		{
			name:       "resource is hidden from the human part",
			components: []string{"Table", "Resource"},
			want:       "TableCD117FA1",
		},
		{
			name:       "default is hidden entirely",
			components: []string{"Table", "Default"},
			want:       "Table",
		},
		{
			name:       "nested",
			components: []string{"A", "B"},
			want:       "ABE649FC2C",
		},
		{
			name:       "no stutter",
			components: []string{"Parent", "Parent"},
			want:       "Parent745100A5",
		},
		{
			name:       "empty",
			components: nil,
			want:       "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MakeLogicalID(tt.components))
		})
	}
}

func TestNewResource(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	root := newTestRoot()
	stack, err := New(root, "Stack")
	require.NoError(err)
	table, err := New(stack, "Table")
	require.NoError(err)

	r, err := NewResource(table, "Resource", stack.Node(), "AWS::DynamoDB::Table", nil)
	require.NoError(err)
	assert.Equal("TableCD117FA1", r.LogicalID())
	assert.NotNil(r.Properties)
	assert.Equal([]string{"Table", "Resource"}, RelativePath(stack.Node(), r.Node()))

	r.AddMetadata("k", "v")
	assert.Equal(map[string]any{"k": "v"}, r.Metadata)
}

func TestValidationErrors(t *testing.T) {
	root := newTestRoot()
	a := NewValidationError(root, "a")
	b := &ValidationError{Path: "x", Message: "b"}

	joined := joinErrs(a, wrap(b))
	got := ValidationErrors(joined)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "a", got[0].Error())
		assert.Equal(t, "x: b", got[1].Error())
	}
	assert.Nil(t, ValidationErrors(nil))
}

func TestNode_Detach(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	root := newTestRoot()
	first, err := New(root, "A")
	require.NoError(err)
	second, err := New(root, "B")
	require.NoError(err)

	first.Node().Detach()
	assert.Nil(root.node.TryFindChild("A"))
	assert.Equal([]*Node{second.node}, root.node.Children())
	assert.Nil(first.Node().Scope())

	// Detaching twice is a no-op.
	first.Node().Detach()
	assert.Equal([]*Node{second.node}, root.node.Children())

	again, err := New(root, "A")
	require.NoError(err)
	assert.Equal("A", again.Node().Path())
	assert.Equal([]*Node{second.node, again.node}, root.node.Children())
}
