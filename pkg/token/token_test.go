package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logicalID string

func (l logicalID) LogicalID() string { return string(l) }

func TestResolve(t *testing.T) {
	table := logicalID("Table")
	cond := logicalID("IsProd")

	tests := []struct {
		name    string
		in      any
		want    any
		wantErr bool
	}{
		{
			name: "literal",
			in:   String("foo"),
			want: "foo",
		},
		{
			name: "ref",
			in:   Ref(table),
			want: map[string]any{"Ref": "Table"},
		},
		{
			name: "get att",
			in:   GetAtt(table, "Arn"),
			want: map[string]any{"Fn::GetAtt": []any{"Table", "Arn"}},
		},
		{
			name: "pseudo",
			in:   AWSRegion,
			want: map[string]any{"Ref": "AWS::Region"},
		},
		{
			name: "literal join collapses",
			in:   Join(":", "arn", String("aws"), "dynamodb"),
			want: "arn:aws:dynamodb",
		},
		{
			name: "join merges adjacent literals",
			in:   Join("", "table/", Ref(table), "/index/", "*"),
			want: map[string]any{"Fn::Join": []any{"", []any{
				"table/",
				map[string]any{"Ref": "Table"},
				"/index/*",
			}}},
		},
		{
			name: "if with no value",
			in:   If(cond, Ref(table), NoValue),
			want: map[string]any{"Fn::If": []any{
				"IsProd",
				map[string]any{"Ref": "Table"},
				map[string]any{"Ref": "AWS::NoValue"},
			}},
		},
		{
			name: "not equals",
			in:   Not(Equals("eu-west-1", AWSRegion)),
			want: map[string]any{"Fn::Not": []any{
				map[string]any{"Fn::Equals": []any{"eu-west-1", map[string]any{"Ref": "AWS::Region"}}},
			}},
		},
		{
			name: "map drops nil values",
			in: map[string]any{
				"A": String("a"),
				"B": nil,
				"C": []Str{String("x"), Ref(table)},
			},
			want: map[string]any{
				"A": "a",
				"C": []any{"x", map[string]any{"Ref": "Table"}},
			},
		},
		{
			name: "nested lazy",
			in:   Lazy(func() any { return map[string]any{"V": Lazy(func() any { return true })} }),
			want: map[string]any{"V": true},
		},
		{
			name:    "unsupported type",
			in:      struct{ A int }{A: 1},
			wantErr: true,
		},
		{
			name:    "ref to nil",
			in:      Ref(nil),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLazy_ProducesOnce(t *testing.T) {
	calls := 0
	l := Lazy(func() any {
		calls++
		return calls
	})
	assert.Equal(t, 0, calls, "lazy must not evaluate at declaration")

	for i := 0; i < 3; i++ {
		v, err := Resolve(l)
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	}
	assert.Equal(t, 1, calls)
}

func TestStr(t *testing.T) {
	assert := assert.New(t)

	lit := String("us-east-1")
	assert.False(lit.IsUnresolved())
	v, ok := lit.Literal()
	assert.True(ok)
	assert.Equal("us-east-1", v)

	assert.True(AWSRegion.IsUnresolved())
	_, ok = AWSRegion.Literal()
	assert.False(ok)
	assert.Equal("${Token[AWS::Region]}", AWSRegion.String())

	assert.True(Str{}.IsEmpty())
	assert.True(IsUnresolved(AWSRegion))
	assert.False(IsUnresolved("x"))
}

func TestConcat(t *testing.T) {
	assert := assert.New(t)

	s := Concat(String("a"), String("b"))
	v, ok := s.Literal()
	assert.True(ok)
	assert.Equal("ab", v)

	tokenised := Concat(String("policy for "), Ref(logicalID("Table")))
	assert.True(tokenised.IsUnresolved())
	got, err := Resolve(tokenised)
	assert.NoError(err)
	assert.Equal(map[string]any{"Fn::Join": []any{"", []any{
		"policy for ",
		map[string]any{"Ref": "Table"},
	}}}, got)
}

func TestConcat_FlattensNested(t *testing.T) {
	inner := Concat(String("table/"), Ref(logicalID("Table")))
	outer := Concat(String("arn:"), AWSPartition, String(":dynamodb:"), inner, String("/index/*"))

	got, err := Resolve(outer)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Fn::Join": []any{"", []any{
		"arn:",
		map[string]any{"Ref": "AWS::Partition"},
		":dynamodb:table/",
		map[string]any{"Ref": "Table"},
		"/index/*",
	}}}, got)
}
