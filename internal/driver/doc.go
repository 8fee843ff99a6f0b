// Package driver executes compiled workloads against the runtime
// support layer.
//
// A Driver owns one engine and one registry for the lifetime of a
// single run. Run populates the registry from the plan's declarations,
// then executes the plan's passes: each pass partitions the tasks into
// fork-join waves, hands every worker its own outbox, and drains the
// shared queue once all workers have joined. Because the queue orders
// drained actions by task id and post order, the recorded trace is
// identical for every worker count and shuffle seed; the replay
// command leans on that equality.
package driver
