package parser

import (
	"testing"

	"pycount/internal/core/errors"
	"pycount/internal/engine/ident"
	"pycount/internal/engine/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, code string) []ident.Occurrence {
	t.Helper()
	p, err := NewParser()
	require.NoError(t, err)

	mod, err := p.Parse("test.py", []byte(code))
	require.NoError(t, err)

	occs, err := ident.Collect(mod)
	require.NoError(t, err)
	return occs
}

func namesOf(occs []ident.Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Name)
	}
	return out
}

type loc struct {
	name      string
	line, col int
}

func locsOf(occs []ident.Occurrence) []loc {
	out := make([]loc, 0, len(occs))
	for _, o := range occs {
		out = append(out, loc{o.Name, o.Line, o.Column})
	}
	return out
}

func TestExtract_FunctionReturningAttribute(t *testing.T) {
	code := "def f(x, y=1):\n    return obj.attr\n"
	occs := extract(t, code)

	assert.Equal(t, []loc{
		{"f", 1, 1},
		{"x", 1, 7},
		{"y", 1, 10},
		{"obj", 2, 12},
		{"attr", 2, 12},
	}, locsOf(occs))
	assert.Equal(t, ident.RoleFunction, occs[0].Role)
	assert.Equal(t, ident.RoleAttribute, occs[4].Role)
}

func TestExtract_Imports(t *testing.T) {
	code := `import os.path as p, sys
from ..pkg.sub import a as b, c
from . import sibling
from m import *
`
	assert.Equal(t, []loc{
		{"os", 1, 1}, {"path", 1, 1}, {"p", 1, 1}, {"sys", 1, 1},
		{"pkg", 2, 1}, {"sub", 2, 1}, {"a", 2, 1}, {"b", 2, 1}, {"c", 2, 1},
		{"sibling", 3, 1},
		{"m", 4, 1}, {"*", 4, 1},
	}, locsOf(extract(t, code)))
}

func TestExtract_ParenthesizedImportList(t *testing.T) {
	code := "from a import (\n    b,\n    c as d,\n)\n"
	assert.Equal(t, []loc{{"a", 1, 1}, {"b", 1, 1}, {"c", 1, 1}, {"d", 1, 1}}, locsOf(extract(t, code)))
}

func TestExtract_FutureImport(t *testing.T) {
	code := "from __future__ import annotations\n"
	assert.Equal(t, []string{"__future__", "annotations"}, namesOf(extract(t, code)))
}

func TestExtract_ParameterOrder(t *testing.T) {
	code := "def g(a, /, b=d1, *args, c, e=d2, **kw):\n    pass\n"
	occs := extract(t, code)
	assert.Equal(t, []string{"g", "a", "b", "args", "d1", "c", "e", "d2", "kw"}, namesOf(occs))

	byName := map[string]ident.Occurrence{}
	for _, o := range occs {
		byName[o.Name] = o
	}
	assert.Equal(t, 7, byName["a"].Column)
	assert.Equal(t, 20, byName["args"].Column, "*args is positioned at the identifier")
	assert.Equal(t, ident.RoleParameter, byName["kw"].Role)
}

func TestExtract_KeywordOnlyWithoutVararg(t *testing.T) {
	code := "def h(a, *, key=None):\n    pass\n"
	assert.Equal(t, []string{"h", "a", "key"}, namesOf(extract(t, code)))
}

func TestExtract_CallKeywords(t *testing.T) {
	code := "print(x, sep=s, **opts)\n"
	occs := extract(t, code)
	assert.Equal(t, []string{"sep", "print", "x", "s", "opts"}, namesOf(occs))
	assert.Equal(t, ident.RoleKeyword, occs[0].Role)
	assert.Equal(t, 10, occs[0].Column)
}

func TestExtract_ClassWithDecoratorAndKeywords(t *testing.T) {
	code := "@deco\nclass C(Base, metaclass=Meta):\n    x: int = 1\n"
	occs := extract(t, code)
	assert.Equal(t, []string{"C", "metaclass", "Base", "Meta", "x", "int", "deco"}, namesOf(occs))
	assert.Equal(t, loc{"C", 2, 1}, locsOf(occs)[0])
}

func TestExtract_AsyncDecoratedFunction(t *testing.T) {
	code := `@app.route("/")
async def handler(req: Request) -> Response:
    await req.json()
`
	occs := extract(t, code)
	assert.Equal(t, []string{"handler", "req", "Request", "req", "json", "app", "route", "Response"}, namesOf(occs))
	assert.Equal(t, loc{"handler", 2, 1}, locsOf(occs)[0])
}

func TestExtract_GlobalAndNonlocal(t *testing.T) {
	code := `def outer():
    global counter, total
    v = 0
    def inner():
        nonlocal v
`
	occs := extract(t, code)
	assert.Equal(t, []string{"outer", "counter", "total", "v", "inner", "v"}, namesOf(occs))
	assert.Equal(t, ident.RoleGlobal, occs[1].Role)
	assert.Equal(t, ident.RoleNonlocal, occs[5].Role)
	assert.Equal(t, loc{"v", 5, 9}, locsOf(occs)[5])
}

func TestExtract_LambdaParametersAreNotNames(t *testing.T) {
	code := "f = lambda a, b=c: a + b\n"
	assert.Equal(t, []string{"f", "c", "a", "b"}, namesOf(extract(t, code)))
}

func TestExtract_ExceptAliasIsNotAName(t *testing.T) {
	code := "try:\n    pass\nexcept ValueError as err:\n    raise\n"
	assert.Equal(t, []string{"ValueError"}, namesOf(extract(t, code)))
}

func TestExtract_WithTargetIsAName(t *testing.T) {
	code := "with open(path) as fh:\n    pass\n"
	assert.Equal(t, []string{"open", "path", "fh"}, namesOf(extract(t, code)))
}

func TestExtract_MatchPatterns(t *testing.T) {
	code := `match cmd:
    case Point(x=px, y=0) as p:
        pass
    case [first, *rest]:
        pass
    case Color.RED:
        pass
    case _:
        pass
`
	occs := extract(t, code)
	assert.Equal(t, []string{"cmd", "p", "Point", "px", "first", "Color", "RED"}, namesOf(occs))
	assert.Equal(t, ident.RoleCapture, occs[1].Role)
}

func TestExtract_FStringInterpolation(t *testing.T) {
	code := "print(f\"{value!r}\")\n"
	assert.Equal(t, []string{"print", "value"}, namesOf(extract(t, code)))
}

func TestExtract_CommentsAndBOM(t *testing.T) {
	code := "\ufeffx = 1  # trailing\n# full line\n"
	assert.Equal(t, []loc{{"x", 1, 1}}, locsOf(extract(t, code)))
}

func TestExtract_UTF8ColumnsCountBytes(t *testing.T) {
	code := "s = \"é\"; t\n"
	occs := extract(t, code)
	// "é" is two bytes, so t sits at byte offset 10.
	assert.Equal(t, []loc{{"s", 1, 1}, {"t", 1, 11}}, locsOf(occs))
}

func TestParse_SyntaxError(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	_, err = p.Parse("broken.py", []byte("def broken(:\n    pass\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSyntaxError), "got %v", err)
	assert.Contains(t, err.Error(), "broken.py")
}

func TestParse_EmptyFile(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	mod, err := p.Parse("empty.py", nil)
	require.NoError(t, err)
	assert.Empty(t, mod.Body)
}

func TestParse_OccurrencesLieInsideProducingNodes(t *testing.T) {
	code := `import a.b as c
class K(object, flag=True):
    def m(self, *xs, **kw):
        return self.field.sub(key=xs)
`
	p, err := NewParser()
	require.NoError(t, err)
	mod, err := p.Parse("spans.py", []byte(code))
	require.NoError(t, err)

	var check func(n syntax.Node)
	check = func(n syntax.Node) {
		occs, err := ident.Collect(n)
		require.NoError(t, err)
		end := n.End()
		for _, o := range occs {
			pos := syntax.Pos{Line: o.Line, Column: o.Column}
			assert.False(t, pos.Before(n.Pos()), "%s before %s node", o.Name, n.Kind())
			assert.True(t, pos.Before(end), "%s after %s node", o.Name, n.Kind())
		}
		for _, child := range n.Children() {
			check(child)
		}
	}
	check(mod)
}

func TestParse_ConcurrentUse(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	done := make(chan []ident.Occurrence, 8)
	for i := 0; i < 8; i++ {
		go func() {
			mod, err := p.Parse("c.py", []byte("import json\njson.dumps(data, indent=2)\n"))
			if err != nil {
				done <- nil
				return
			}
			occs, _ := ident.Collect(mod)
			done <- occs
		}()
	}
	for i := 0; i < 8; i++ {
		occs := <-done
		assert.Equal(t, []string{"json", "indent", "json", "dumps", "data"}, namesOf(occs))
	}
	assert.Equal(t, 0, p.pool.Leased())
}

func TestParse_RejectsPython2AndInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"print statement", "print \"hi\", name\n", "print statement"},
		{"exec statement", "exec code in ns\n", "exec statement"},
		{"backquote", "x = `v`\n", "backquote"},
		{"default before plain", "def f(a=1, b):\n    pass\n", "parameter without a default"},
		{"default before plain in lambda", "g = lambda a=1, b: 0\n", "parameter without a default"},
		{"tuple parameter", "def f((a, b)):\n    pass\n", "tuple parameter"},
	}

	p, err := NewParser()
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, err := p.Parse("legacy.py", []byte(tt.code))
			require.Error(t, err, "parsed into %v", mod)
			assert.True(t, errors.IsCode(err, errors.CodeSyntaxError), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_BackquoteInStringOrComment(t *testing.T) {
	code := "s = \"run `make`\"  # see `docs`\n"
	assert.Equal(t, []string{"s"}, namesOf(extract(t, code)))
}

func TestParse_AcceptsDefaultsBeforeKeywordOnly(t *testing.T) {
	code := "def f(a=1, *args, b, c=2, **kw):\n    pass\nh = lambda x=0, *, y: y\n"
	assert.Equal(t, []string{"f", "a", "args", "b", "c", "kw", "h", "y"}, namesOf(extract(t, code)))
}

func TestExtract_PrintChevronIsAnExpression(t *testing.T) {
	code := "print >>sys.stderr, x\n"
	occs := extract(t, code)
	assert.Equal(t, []loc{
		{"print", 1, 1},
		{"sys", 1, 9},
		{"stderr", 1, 9},
		{"x", 1, 21},
	}, locsOf(occs))
}

func TestExtract_ChildOrderFollowsPythonFields(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []string
	}{
		{"dict keys before values", "{k1: v1, k2: v2}\n", []string{"k1", "k2", "v1", "v2"}},
		{"dict splat is a value", "{k: v, **rest}\n", []string{"k", "v", "rest"}},
		{"conditional test first", "y if cond else z\n", []string{"cond", "y", "z"}},
		{"lambda keyword-only defaults first", "lambda a=x, *, b=y: 0\n", []string{"y", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, namesOf(extract(t, tt.code)))
		})
	}
}
