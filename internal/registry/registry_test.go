package registry

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TablesReady(t *testing.T) {
	reg := New()

	require.NotNil(t, reg.Args)
	require.NotNil(t, reg.User)
	require.NotNil(t, reg.Scopes)
	require.NotNil(t, reg.Hierarchy)
	require.NotNil(t, reg.Exports)
	require.NotNil(t, reg.TimeFmt)
	require.NotNil(t, reg.Files)

	assert.NotEmpty(t, reg.Files.Resolve(1<<31|1, 1), "standard streams wired at construction")
}

func TestRegistry_UnregisterScopeCascades(t *testing.T) {
	reg := New()
	doomed := &Scope{Name: "top.doomed"}
	kept := &Scope{Name: "top.kept"}
	reg.Scopes.Register(doomed)
	reg.Scopes.Register(kept)
	reg.User.Set(doomed, userTestKey("a"), 1)
	reg.User.Set(doomed, userTestKey("b"), 2)
	reg.User.Set(kept, userTestKey("a"), 3)

	reg.UnregisterScope(doomed)

	assert.Nil(t, reg.Scopes.Find("top.doomed"))
	assert.Nil(t, reg.User.Get(doomed, userTestKey("a")))
	assert.Nil(t, reg.User.Get(doomed, userTestKey("b")))
	assert.Same(t, kept, reg.Scopes.Find("top.kept"))
	assert.Equal(t, 3, reg.User.Get(kept, userTestKey("a")))
}

func TestRegistry_InternalsDumpSections(t *testing.T) {
	reg := New()
	reg.Args.Set("+seed=7")
	scope := &Scope{Name: "top.cpu", Kind: KindModule}
	reg.Scopes.Register(scope)
	reg.Hierarchy.Add(nil, scope)
	reg.Exports.IDFor("dpi_task")
	reg.User.Set(scope, userTestKey("k"), "v")

	var buf bytes.Buffer
	reg.InternalsDump(&buf)

	out := buf.String()
	assert.Contains(t, out, "internalsDump:")
	assert.Contains(t, out, "argDump:")
	assert.Contains(t, out, "scopesDump:")
	assert.Contains(t, out, "hierarchyDump:")
	assert.Contains(t, out, "exportsDump:")
	assert.Contains(t, out, "userDump:")
	assert.Contains(t, out, "timeFormatDump:")
	assert.Contains(t, out, "fdtabDump:")
}

func TestRegistry_InternalsDumpGolden(t *testing.T) {
	reg := New()
	reg.Args.Set("+seed=7", "+trace")
	top := &Scope{Name: "top", Timeunit: -9, Kind: KindModule}
	cpu := &Scope{Name: "top.cpu", Timeunit: -9, Kind: KindModule}
	reg.Scopes.Register(top)
	reg.Scopes.Register(cpu)
	reg.Hierarchy.Add(nil, top)
	reg.Hierarchy.Add(top, cpu)
	reg.Exports.IDFor("clk_toggle")
	reg.Exports.IDFor("rst_pulse")
	reg.User.Set(top, userTestKey("counter"), 3)
	reg.TimeFmt.SetUnits(-9)
	reg.TimeFmt.SetSuffix(" ns")

	var buf bytes.Buffer
	reg.InternalsDump(&buf)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "internals_dump", buf.Bytes())
}

func TestRegistry_InternalsDumpDeterministic(t *testing.T) {
	build := func() *Registry {
		reg := New()
		reg.Args.Set("+trace", "+seed=3")
		for _, name := range []string{"top.c", "top.a", "top.b"} {
			s := &Scope{Name: name}
			reg.Scopes.Register(s)
			reg.User.Set(s, userTestKey("n"), name)
		}
		reg.Exports.IDFor("dpi_x")
		reg.Exports.IDFor("dpi_y")
		return reg
	}

	var first, second bytes.Buffer
	build().InternalsDump(&first)
	build().InternalsDump(&second)
	assert.Equal(t, first.String(), second.String(), "dump output is stable across identical processes")
}
