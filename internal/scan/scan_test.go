package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatching(t *testing.T) {
	tests := []struct {
		name  string
		input string
		open  int
		want  int
	}{
		{
			name:  "flat parens",
			input: "(abc)",
			open:  0,
			want:  4,
		},
		{
			name:  "nested braces",
			input: "{a: {b: 1}}",
			open:  0,
			want:  10,
		},
		{
			name:  "closer inside string literal",
			input: `("a)b")`,
			open:  0,
			want:  6,
		},
		{
			name:  "closer inside line comment",
			input: "(a // )\n)",
			open:  0,
			want:  8,
		},
		{
			name:  "closer inside block comment",
			input: "(a /* ) */ b)",
			open:  0,
			want:  12,
		},
		{
			name:  "unterminated",
			input: "(abc",
			open:  0,
			want:  -1,
		},
		{
			name:  "not a delimiter",
			input: "abc",
			open:  0,
			want:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matching(tt.input, tt.open))
		})
	}
}

func TestSplitTop(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple",
			input: "a, b, c",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "nested call commas ignored",
			input: `projectId: v.id("projects"), status: v.union(v.literal("a"), v.literal("b"))`,
			want: []string{
				`projectId: v.id("projects")`,
				`status: v.union(v.literal("a"), v.literal("b"))`,
			},
		},
		{
			name:  "comma inside string ignored",
			input: `a: "x,y", b: 1`,
			want:  []string{`a: "x,y"`, "b: 1"},
		},
		{
			name:  "trailing comma dropped",
			input: "a: 1,",
			want:  []string{"a: 1"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitTop(tt.input, ','))
		})
	}
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "projects", Unquote(`"projects"`))
	assert.Equal(t, "projects", Unquote(`  'projects' `))
	assert.Equal(t, "projects", Unquote("`projects`"))
	assert.Equal(t, "bare", Unquote("bare"))
	assert.Equal(t, `"mismatch'`, Unquote(`"mismatch'`))
}

func TestIndexTop(t *testing.T) {
	assert.Equal(t, 4, IndexTop("name: value", ':'))
	assert.Equal(t, 14, IndexTop(`{a: 1, b: {}} : x`, ':'))
	assert.Equal(t, -1, IndexTop("(a: b)", ':'))
	assert.Equal(t, -1, IndexTop(`"a: b"`, ':'))
}
