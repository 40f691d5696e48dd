package stack

import (
	"testing"
	"testing/fstest"

	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStack(t *testing.T, props Props) *Stack {
	t.Helper()
	s, err := New(NewApp(), "Stack", props)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		props    Props
		wantName string
		wantErr  bool
	}{
		{name: "name from id", id: "my_stack", wantName: "my-stack"},
		{name: "explicit name", id: "Stack", props: Props{StackName: "prod"}, wantName: "prod"},
		{name: "invalid name", id: "Stack", props: Props{StackName: "1-bad"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(NewApp(), tt.id, tt.props)
			if tt.wantErr {
				var verr *construct.ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, s.StackName())
		})
	}
}

func TestStack_Environment(t *testing.T) {
	tests := []struct {
		name      string
		region    string
		partition any
	}{
		{name: "agnostic", region: "", partition: map[string]any{"Ref": "AWS::Partition"}},
		{name: "commercial", region: "us-east-1", partition: "aws"},
		{name: "china", region: "cn-north-1", partition: "aws-cn"},
		{name: "govcloud", region: "us-gov-west-1", partition: "aws-us-gov"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStack(t, Props{Region: tt.region})
			assert.Equal(t, tt.region == "", s.Region().IsUnresolved())
			got, err := s.Partition().Resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.partition, got)
		})
	}
}

func TestStack_FormatArn(t *testing.T) {
	t.Run("literal environment", func(t *testing.T) {
		s := newTestStack(t, Props{Region: "us-east-1", Account: "123456789012"})
		got := s.FormatArn(ArnComponents{Service: "dynamodb", Resource: "table", ResourceName: token.String("T")})
		lit, ok := got.Literal()
		require.True(t, ok)
		assert.Equal(t, "arn:aws:dynamodb:us-east-1:123456789012:table/T", lit)
	})

	t.Run("explicit region", func(t *testing.T) {
		s := newTestStack(t, Props{Region: "us-east-1", Account: "123456789012"})
		got := s.FormatArn(ArnComponents{
			Service:      "dynamodb",
			Resource:     "table",
			ResourceName: token.String("T"),
			Region:       token.String("eu-west-1"),
		})
		assert.Equal(t, "arn:aws:dynamodb:eu-west-1:123456789012:table/T", got.String())
	})

	t.Run("global service", func(t *testing.T) {
		s := newTestStack(t, Props{Region: "us-east-1", Account: "123456789012"})
		got := s.FormatArn(ArnComponents{Service: "iam", Resource: "role", ResourceName: token.String("r"), NoRegion: true})
		assert.Equal(t, "arn:aws:iam::123456789012:role/r", got.String())
	})

	t.Run("agnostic environment", func(t *testing.T) {
		s := newTestStack(t, Props{})
		got, err := token.Resolve(s.FormatArn(ArnComponents{Service: "dynamodb", Resource: "table", ResourceName: token.String("T")}))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"Fn::Join": []any{"", []any{
			"arn:", map[string]any{"Ref": "AWS::Partition"},
			":dynamodb:", map[string]any{"Ref": "AWS::Region"},
			":", map[string]any{"Ref": "AWS::AccountId"},
			":table/T",
		}}}, got)
	})
}

func TestStack_AddResource(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	app := NewApp()
	s, err := New(app, "A", Props{})
	require.NoError(err)
	other, err := New(app, "B", Props{})
	require.NoError(err)

	r, err := s.AddResource(s, "My-Table", "AWS::DynamoDB::Table", nil)
	require.NoError(err)
	assert.Equal("MyTable", r.LogicalID())

	got, err := s.Resource("MyTable")
	require.NoError(err)
	assert.Equal(r, got)

	_, err = s.AddResource(s, "MyTable", "AWS::DynamoDB::Table", nil)
	assert.ErrorContains(err, "logical id MyTable is already used")

	_, err = other.AddResource(s, "X", "Test::Resource", nil)
	assert.ErrorContains(err, "scope belongs to stack A")

	_, err = s.Resource("Missing")
	assert.Error(err)

	found, err := Of(r)
	require.NoError(err)
	assert.Equal(s, found)

	_, err = Of(app)
	assert.Error(err)
}

func TestStack_Template(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestStack(t, Props{Description: "test"})
	table, err := s.AddResource(s, "Table", "AWS::DynamoDB::Table", construct.Properties{
		"TableName": "t",
	})
	require.NoError(err)
	require.NoError(ApplyRemovalPolicy(table, RemovalPolicyRetain))

	isEast, err := s.AddCondition(s, "IsEast", token.Equals(s.Region(), "us-east-1"))
	require.NoError(err)
	replica, err := s.AddResource(s, "Replica", "Custom::DynamoDBReplica", construct.Properties{
		"TableName": table.Ref(),
	})
	require.NoError(err)
	replica.Condition = isEast
	replica.AddMetadata("Dep", token.If(isEast, table.Ref(), token.NoValue))
	require.NoError(s.AddDependency(replica, table))

	_, err = s.AddOutput(s, "TableArn", table.GetAtt("Arn"), "arn")
	require.NoError(err)

	tmpl, err := s.Template()
	require.NoError(err)

	assert.Equal("2010-09-09", tmpl.AWSTemplateFormatVersion)
	assert.Equal("test", tmpl.Description)
	assert.Equal(map[string]any{
		"IsEast": map[string]any{"Fn::Equals": []any{map[string]any{"Ref": "AWS::Region"}, "us-east-1"}},
	}, tmpl.Conditions)
	assert.Equal(TemplateResource{
		Type:                "AWS::DynamoDB::Table",
		Properties:          map[string]any{"TableName": "t"},
		DeletionPolicy:      "Retain",
		UpdateReplacePolicy: "Retain",
	}, tmpl.Resources["Table"])
	assert.Equal(TemplateResource{
		Type:       "Custom::DynamoDBReplica",
		Properties: map[string]any{"TableName": map[string]any{"Ref": "Table"}},
		DependsOn:  []string{"Table"},
		Condition:  "IsEast",
		Metadata: map[string]any{
			"Dep": map[string]any{"Fn::If": []any{"IsEast", map[string]any{"Ref": "Table"}, map[string]any{"Ref": "AWS::NoValue"}}},
		},
	}, tmpl.Resources["Replica"])
	assert.Equal(map[string]TemplateOutput{
		"TableArn": {Value: map[string]any{"Fn::GetAtt": []any{"Table", "Arn"}}, Description: "arn"},
	}, tmpl.Outputs)

	// Replica sorts before Table by id but is created after it.
	resources, err := s.Resources()
	require.NoError(err)
	assert.Equal([]*construct.Resource{table, replica}, resources)
}

func TestStack_Template_UnknownReferences(t *testing.T) {
	s := newTestStack(t, Props{})
	other := newTestStack(t, Props{})
	foreign, err := other.AddResource(other, "Foreign", "Test::Resource", nil)
	require.NoError(t, err)

	r, err := s.AddResource(s, "Local", "Test::Resource", construct.Properties{"X": foreign.Ref()})
	require.NoError(t, err)
	r.Condition = construct.Detached("NoSuchCondition", "")

	_, err = s.Template()
	require.Error(t, err)
	assert.ErrorContains(t, err, "resource Local references unknown resource Foreign")
	assert.ErrorContains(t, err, "resource Local references unknown condition NoSuchCondition")
}

func TestStack_Singleton(t *testing.T) {
	s := newTestStack(t, Props{})
	calls := 0
	create := func() (construct.Construct, error) {
		calls++
		return construct.New(s, "Provider")
	}
	a, err := s.Singleton("provider", create)
	require.NoError(t, err)
	b, err := s.Singleton("provider", create)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestStack_AddStackDependency(t *testing.T) {
	app := NewApp()
	a, err := New(app, "A", Props{})
	require.NoError(t, err)
	b, err := New(app, "B", Props{})
	require.NoError(t, err)
	c, err := New(app, "C", Props{})
	require.NoError(t, err)

	require.NoError(t, a.AddStackDependency(b))
	require.NoError(t, b.AddStackDependency(c))
	require.NoError(t, a.AddStackDependency(b))
	assert.Equal(t, []*Stack{b}, a.Dependencies())

	assert.Error(t, c.AddStackDependency(a))
	assert.Error(t, a.AddStackDependency(a))

	foreign := newTestStack(t, Props{})
	assert.Error(t, a.AddStackDependency(foreign))
}

func TestRemovalPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "destroy", want: "Delete"},
		{input: "RETAIN", want: "Retain"},
		{input: "snapshot", want: "Snapshot"},
		{input: "keep", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseRemovalPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got, err := p.DeletionPolicy()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFileAsset(t *testing.T) {
	src := fstest.MapFS{
		"index.py":      {Data: []byte("print('hi')")},
		"lib/helper.py": {Data: []byte("x = 1")},
	}
	a, err := NewFileAsset(src, "handler")
	require.NoError(t, err)
	assert.Len(t, a.Hash, 64)
	assert.Equal(t, a.Hash+".zip", a.ObjectKey())

	same, err := NewFileAsset(fstest.MapFS{
		"index.py":      {Data: []byte("print('hi')")},
		"lib/helper.py": {Data: []byte("x = 1")},
	}, "other")
	require.NoError(t, err)
	assert.Equal(t, a.Hash, same.Hash)

	renamed, err := NewFileAsset(fstest.MapFS{
		"main.py":       {Data: []byte("print('hi')")},
		"lib/helper.py": {Data: []byte("x = 1")},
	}, "handler")
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, renamed.Hash)

	s := newTestStack(t, Props{})
	assert.Same(t, a, s.AddAsset(a))
	assert.Same(t, a, s.AddAsset(same))
	assert.Len(t, s.Assets(), 1)
}
