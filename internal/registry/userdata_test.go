package registry

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// userTestKey keeps test entries from colliding with any other key
// type, mirroring how callers are expected to key the table.
type userTestKey string

func TestUserData_SetGet(t *testing.T) {
	var ud UserData
	scope := &Scope{Name: "top.cpu"}

	ud.Set(scope, userTestKey("cov"), 42)
	assert.Equal(t, 42, ud.Get(scope, userTestKey("cov")))

	ud.Set(scope, userTestKey("cov"), 43)
	assert.Equal(t, 43, ud.Get(scope, userTestKey("cov")), "Set replaces")
}

func TestUserData_MissReturnsNil(t *testing.T) {
	var ud UserData
	scope := &Scope{Name: "top.cpu"}

	assert.Nil(t, ud.Get(scope, userTestKey("absent")))
}

func TestUserData_DistinctScopesSameKey(t *testing.T) {
	var ud UserData
	a := &Scope{Name: "top.a"}
	b := &Scope{Name: "top.b"}

	ud.Set(a, userTestKey("k"), "for-a")
	ud.Set(b, userTestKey("k"), "for-b")

	assert.Equal(t, "for-a", ud.Get(a, userTestKey("k")))
	assert.Equal(t, "for-b", ud.Get(b, userTestKey("k")))
}

func TestUserData_PointerIdentityNotName(t *testing.T) {
	var ud UserData
	first := &Scope{Name: "top.dup"}
	second := &Scope{Name: "top.dup"}

	ud.Set(first, userTestKey("k"), 1)

	assert.Equal(t, 1, ud.Get(first, userTestKey("k")))
	assert.Nil(t, ud.Get(second, userTestKey("k")), "equal names are still distinct scopes")
}

func TestUserData_ClearScopeRemovesOnlyThatScope(t *testing.T) {
	var ud UserData
	doomed := &Scope{Name: "top.doomed"}
	kept := &Scope{Name: "top.kept"}

	ud.Set(doomed, userTestKey("a"), 1)
	ud.Set(doomed, userTestKey("b"), 2)
	ud.Set(kept, userTestKey("a"), 3)

	ud.ClearScope(doomed)

	assert.Nil(t, ud.Get(doomed, userTestKey("a")))
	assert.Nil(t, ud.Get(doomed, userTestKey("b")))
	assert.Equal(t, 3, ud.Get(kept, userTestKey("a")))
	assert.Equal(t, 1, ud.Len())
}

func TestUserData_DumpEmptyPrintsNothing(t *testing.T) {
	var ud UserData

	var buf bytes.Buffer
	ud.Dump(&buf)
	assert.Empty(t, buf.String())
}

func TestUserData_DumpSortedByScope(t *testing.T) {
	var ud UserData
	b := &Scope{Name: "top.b"}
	a := &Scope{Name: "top.a"}

	ud.Set(b, userTestKey("k"), 2)
	ud.Set(a, userTestKey("k"), 1)

	var buf bytes.Buffer
	ud.Dump(&buf)

	assert.Contains(t, buf.String(), "userDump:")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("top.a")), bytes.Index(buf.Bytes(), []byte("top.b")))
}
