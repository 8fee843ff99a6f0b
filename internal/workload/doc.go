// Package workload defines the compiled form of a Strobe workload: the
// scopes, exports, files, time format, and tasks one simulation run
// sets up and drives.
//
// Workloads are authored in CUE and compiled to a Plan. Plans are
// content-addressed: MarshalCanonical renders RFC 8785 canonical JSON
// (UTF-16 sorted keys, NFC normalized strings, no HTML escaping, no
// floats, no null) and Plan.ID hashes it under a domain-separated
// SHA-256, so the same workload always names the same identity across
// machines and runs.
//
// This package is the foundational layer: every other internal package
// may import workload; workload imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - simulated quantities are integers
//   - All JSON tags use snake_case
//   - Declaration order is meaningful and preserved
package workload
