package mdtest

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
)

const doc = "# Arithmetic\n\nSome prose.\n\n```\nplain block\n```\n\n" +
	"## Test: addition\n\n```swindle\nwriteln 1 + 2;\n```\n\n```output\n3\n```\n\n" +
	"## Test: bad type\n\n```swindle\nint x = true;\n```\n\n```compile-error\ncannot initialize int variable 'x' with a value of type bool\n```\n"

func TestExtract(t *testing.T) {
	cases, err := Extract([]byte(doc))
	be.Err(t, err, nil)
	want := []TestCase{
		{
			Name:       "addition",
			Line:       12,
			Input:      "writeln 1 + 2;\n",
			Assertions: []Assertion{{AssertOutput, "3"}},
		},
		{
			Name:       "bad type",
			Line:       22,
			Input:      "int x = true;\n",
			Assertions: []Assertion{{AssertCompileError, "cannot initialize int variable 'x' with a value of type bool"}},
		},
	}
	if diff := cmp.Diff(want, cases); diff != "" {
		t.Errorf("test cases mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		doc string
		msg string
	}{
		{"```output\n1\n```\n", "line 2: output fence found outside of a test case"},
		{"# Test: a\n\n```output\n1\n```\n", "test 'a' has no swindle fence"},
		{"# Test: a\n\n```swindle\n1\n```\n", "test 'a' has no assertion fences"},
		{"# Test: a\n\n```swindle\n1\n```\n\n```swindle\n2\n```\n", "multiple swindle fences in test 'a'"},
		{"# Test: a\n\n```swindle\n1\n```\n\n```python\n2\n```\n", "unknown fence language 'python' in test 'a'"},
	}
	for _, tt := range tests {
		_, err := Extract([]byte(tt.doc))
		be.True(t, err != nil)
		be.True(t, strings.Contains(err.Error(), tt.msg))
	}
}
