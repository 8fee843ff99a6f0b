package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashPlan() *Plan {
	return &Plan{
		Name:   "probe",
		Passes: 2,
		Tasks: []TaskDecl{
			{Name: "tick", Actions: []ActionDecl{{Kind: ActionEmit, Text: "tick"}}},
			{Name: "tock", After: []string{"tick"}, Actions: []ActionDecl{{Kind: ActionEmit, Text: "tock"}}},
		},
	}
}

func TestPlanIDDeterminism(t *testing.T) {
	id1, err := hashPlan().ID()
	require.NoError(t, err)

	id2, err := hashPlan().ID()
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "ID must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestPlanIDChangesWithContent(t *testing.T) {
	base := hashPlan().MustID()

	renamed := hashPlan()
	renamed.Name = "other"

	repassed := hashPlan()
	repassed.Passes = 3

	retexted := hashPlan()
	retexted.Tasks[0].Actions[0].Text = "tick!"

	reordered := hashPlan()
	reordered.Tasks[0], reordered.Tasks[1] = reordered.Tasks[1], reordered.Tasks[0]

	assert.NotEqual(t, base, renamed.MustID(), "different name should produce a different id")
	assert.NotEqual(t, base, repassed.MustID(), "different passes should produce a different id")
	assert.NotEqual(t, base, retexted.MustID(), "different action text should produce a different id")
	assert.NotEqual(t, base, reordered.MustID(), "task order is semantic and must change the id")
}

func TestPlanIDIgnoresSourceFormatting(t *testing.T) {
	planA, err := CompileString(`
		workload: {
			name:   "ordered"
			passes: 2
			tasks: [{name: "t", actions: [{kind: "emit", text: "x"}]}]
		}
	`)
	require.NoError(t, err)

	planB, err := CompileString(`
		workload: {
			tasks: [
				{
					name: "t"
					actions: [{text: "x", kind: "emit"}]
				},
			]
			passes: 2
			name:   "ordered"
		}
	`)
	require.NoError(t, err)

	assert.Equal(t, planA.MustID(), planB.MustID(),
		"field order and formatting in the source must not change the id")
}

func TestPlanIDEmptyOptionalSections(t *testing.T) {
	// Absent and empty optional sections canonicalize identically.
	withNil := hashPlan()
	withNil.Scopes = nil
	withNil.Exports = nil
	withNil.Files = nil

	withEmpty := hashPlan()
	withEmpty.Scopes = []ScopeDecl{}
	withEmpty.Exports = []string{}
	withEmpty.Files = []FileDecl{}

	assert.Equal(t, withNil.MustID(), withEmpty.MustID())
}

func TestPlanIDHexEncoding(t *testing.T) {
	id := hashPlan().MustID()

	for _, c := range id {
		valid := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		assert.True(t, valid, "id should only contain hex characters, got: %c", c)
	}
}

func TestMustIDNotPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		hashPlan().MustID()
	})
}

func TestTraceHashDeterminism(t *testing.T) {
	lines := []string{"1 0 1 emit tick", "2 0 2 emit tock"}

	h1, err := TraceHash(lines)
	require.NoError(t, err)

	h2, err := TraceHash(lines)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "TraceHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestTraceHashOrderSensitive(t *testing.T) {
	h1, err := TraceHash([]string{"1 0 1 emit tick", "2 0 2 emit tock"})
	require.NoError(t, err)

	h2, err := TraceHash([]string{"2 0 2 emit tock", "1 0 1 emit tick"})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "line order is semantic and must change the hash")
}

func TestTraceHashChangesWithContent(t *testing.T) {
	h1, err := TraceHash([]string{"1 0 1 emit tick"})
	require.NoError(t, err)

	h2, err := TraceHash([]string{"1 0 1 emit tick", "2 0 1 emit tick"})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "an extra line must change the hash")
}

func TestTraceHashEmpty(t *testing.T) {
	fromNil, err := TraceHash(nil)
	require.NoError(t, err)

	fromEmpty, err := TraceHash([]string{})
	require.NoError(t, err)

	assert.Equal(t, fromNil, fromEmpty)
	assert.Len(t, fromNil, 64)
}

func TestDomainSeparationPreventsCrossTypeCollision(t *testing.T) {
	// Same data hashed with different domains must produce different hashes
	data := []byte(`["1 0 1 emit tick"]`)

	workloadHash := hashWithDomain(DomainWorkload, data)
	traceHash := hashWithDomain(DomainTrace, data)

	assert.NotEqual(t, workloadHash, traceHash, "different domains must produce different hashes")
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// Verify null separator prevents boundary confusion
	// "foo" + 0x00 + "bar" ≠ "foob" + 0x00 + "ar"

	hash1 := hashWithDomain("foo", []byte("bar"))
	hash2 := hashWithDomain("foob", []byte("ar"))

	assert.NotEqual(t, hash1, hash2, "null separator must prevent boundary confusion")
}

func TestDomainConstants(t *testing.T) {
	assert.Equal(t, "strobe/workload/v1", DomainWorkload)
	assert.Equal(t, "strobe/trace/v1", DomainTrace)
}
