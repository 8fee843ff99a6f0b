// Package registry implements the process-wide shared state of a Strobe
// simulation: fine-grained, independently locked tables for arguments,
// per-scope user data, scope names and hierarchy, export ids, time
// format settings, and virtual file descriptors.
//
// Every operation is safe under true parallel access unless its
// documentation says otherwise. Each table guards itself with its own
// mutex, and no lock is ever held while running caller-supplied code.
// Lock ordering concerns do not arise: tables never call each other.
// Cascades that span tables, like scope teardown, compose at the
// Registry level.
//
// Two failures are fatal: querying plus-args before any arguments were
// loaded, and resolving an export name no loaded model registered. Both
// indicate a misassembled process rather than a runtime condition to
// recover from. The registry reports them as FatalError values and
// leaves process termination to the caller. Everything else - lookup
// misses, file open failures - is an ordinary caller-visible outcome.
//
// No operation retries: everything here is synchronous and
// single-attempt; retry policy, if any, belongs to the collaborator.
package registry
