package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/strobesim/strobe/internal/engine"
	"github.com/strobesim/strobe/internal/fdtab"
	"github.com/strobesim/strobe/internal/registry"
	"github.com/strobesim/strobe/internal/workload"
)

const (
	// DefaultWorkers is the worker count used when Config.Workers is
	// zero or negative.
	DefaultWorkers = 4
	// DefaultSeed is the shuffle seed used when neither Config.Seed nor
	// the +seed= plus-arg selects one.
	DefaultSeed = 1
	// seedArg is the plus-arg prefix consulted for the shuffle seed.
	seedArg = "seed="
)

// Config controls one workload execution.
type Config struct {
	// Workers is the number of evaluation workers per wave. Zero means
	// DefaultWorkers.
	Workers int
	// Seed selects the order workers execute their share of a wave in.
	// Zero consults the +seed= plus-arg and falls back to DefaultSeed.
	// The seed varies the schedule, never the trace.
	Seed int64
	// PlusArgs is the simulated command line, stored in the argument
	// table before the first pass.
	PlusArgs []string
	// OutDir is the directory workload-declared files are created in.
	// Empty means the current directory.
	OutDir string
	// RunIDs mints the result's run id. Nil means UUIDv7Source.
	RunIDs RunIDSource
}

// Result is the outcome of a completed run.
type Result struct {
	RunID         string
	Workload      string
	WorkloadID    string
	EngineVersion string
	Passes        int64
	Workers       int
	Seed          int64
	Events        []Event
	TraceHash     string
	// ActionCounts holds, per scope name, the number of user-data
	// actions that executed against the scope across all passes.
	ActionCounts map[string]int64
}

// actionCountKey keys the per-scope executed-action count in the
// user-data table.
type actionCountKey struct{}

// Driver executes one compiled plan. New validates the plan and builds
// the engine and registry; Run consumes the driver. A second execution
// of the same plan needs a fresh Driver.
type Driver struct {
	plan    *workload.Plan
	cfg     Config
	workers int
	runIDs  RunIDSource

	eng   *engine.Engine
	reg   *registry.Registry
	trace *Trace

	scopes    map[string]*registry.Scope
	files     map[string]fdtab.Descriptor
	fileOrder []string
	taskID    map[string]uint32

	seed int64
	ran  bool
	// actErr is the first action failure. Actions execute on the
	// draining goroutine only, so plain reads and writes suffice.
	actErr error
}

// New creates a driver for plan. The plan must validate cleanly;
// compile-time findings are returned here rather than surfacing as
// action failures mid-run.
func New(plan *workload.Plan, cfg Config) (*Driver, error) {
	if plan == nil {
		return nil, errors.New("driver: nil plan")
	}
	if errs := workload.Validate(plan); len(errs) > 0 {
		return nil, fmt.Errorf("driver: invalid workload (%d findings): %w", len(errs), errs[0])
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	runIDs := cfg.RunIDs
	if runIDs == nil {
		runIDs = UUIDv7Source{}
	}
	return &Driver{
		plan:    plan,
		cfg:     cfg,
		workers: workers,
		runIDs:  runIDs,
		eng:     engine.New(),
		reg:     registry.New(),
		trace:   NewTrace(),
		scopes:  make(map[string]*registry.Scope),
		files:   make(map[string]fdtab.Descriptor),
		taskID:  make(map[string]uint32),
	}, nil
}

// Engine returns the engine this driver runs against. Useful for
// metrics collection; the engine is live while Run executes.
func (d *Driver) Engine() *engine.Engine {
	return d.eng
}

// Registry returns the registry this driver populates. The tables stay
// populated after Run returns so callers can dump or inspect them.
func (d *Driver) Registry() *registry.Registry {
	return d.reg
}

// Trace returns the run's trace. Complete once Run has returned.
func (d *Driver) Trace() *Trace {
	return d.trace
}

// Run executes every pass of the plan and returns the recorded trace.
//
// The same plan produces the same Result.Events and Result.TraceHash
// for every worker count and seed; only the run id differs between
// executions.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if d.ran {
		return nil, errors.New("driver: Run already consumed")
	}
	d.ran = true

	planID, err := d.plan.ID()
	if err != nil {
		return nil, err
	}
	waves, err := d.plan.Levels()
	if err != nil {
		return nil, err
	}
	if err := d.setup(); err != nil {
		return nil, err
	}
	defer func() { _ = d.closeFiles() }()

	slog.Debug("run starting",
		"workload", d.plan.Name,
		"workload_id", planID,
		"passes", d.plan.Passes,
		"workers", d.workers,
		"seed", d.seed)

	for pass := int64(0); pass < d.plan.Passes; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("driver: run canceled: %w", err)
		}
		if err := d.runPass(ctx, pass, waves); err != nil {
			return nil, err
		}
		slog.Debug("pass drained", "pass", pass, "events", d.trace.Len())
	}

	if err := d.closeFiles(); err != nil {
		return nil, err
	}

	traceHash, err := workload.TraceHash(d.trace.Lines())
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:         d.runIDs.NewRunID(),
		Workload:      d.plan.Name,
		WorkloadID:    planID,
		EngineVersion: workload.RuntimeVersion,
		Passes:        d.plan.Passes,
		Workers:       d.workers,
		Seed:          d.seed,
		Events:        d.trace.Events(),
		TraceHash:     traceHash,
		ActionCounts:  d.actionCounts(),
	}
	slog.Info("run complete",
		"run_id", res.RunID,
		"events", len(res.Events),
		"trace_hash", res.TraceHash)
	return res, nil
}

// setup populates the registry from the plan's declarations: arguments
// first so the seed can be read, then scopes, hierarchy edges, export
// ids, time format, files, and finally the task id assignment.
func (d *Driver) setup() error {
	d.reg.Args.Set(d.cfg.PlusArgs...)

	seed, err := d.shuffleSeed()
	if err != nil {
		return err
	}
	d.seed = seed

	for _, decl := range d.plan.Scopes {
		kind := registry.KindOther
		if decl.Module {
			kind = registry.KindModule
		}
		sc := &registry.Scope{Name: decl.Name, Timeunit: int(decl.Timeunit), Kind: kind}
		d.reg.Scopes.Register(sc)
		d.scopes[decl.Name] = sc
	}
	// Second loop so a child may be declared ahead of its parent.
	for _, decl := range d.plan.Scopes {
		var parent *registry.Scope
		if decl.Parent != "" {
			parent = d.scopes[decl.Parent]
		}
		d.reg.Hierarchy.Add(parent, d.scopes[decl.Name])
	}

	for _, name := range d.plan.Exports {
		d.reg.Exports.IDFor(name)
	}

	if tf := d.plan.TimeFormat; tf != nil {
		d.reg.TimeFmt.SetUnits(int(tf.Units))
		d.reg.TimeFmt.SetPrecision(int(tf.Precision))
		if tf.Width > 0 {
			d.reg.TimeFmt.SetWidth(int(tf.Width))
		}
		d.reg.TimeFmt.SetSuffix(tf.Suffix)
	}

	for _, f := range d.plan.Files {
		path := filepath.Join(d.cfg.OutDir, f.Name)
		var (
			desc fdtab.Descriptor
			err  error
		)
		if f.Multi {
			desc, err = d.reg.Files.OpenMulti(path)
		} else {
			mode := f.Mode
			if mode == "" {
				mode = "w"
			}
			desc, err = d.reg.Files.OpenSingle(path, mode)
		}
		if err != nil {
			_ = d.closeFiles()
			return fmt.Errorf("driver: open %s: %w", f.Name, err)
		}
		d.files[f.Name] = desc
		d.fileOrder = append(d.fileOrder, f.Name)
	}

	for i, t := range d.plan.Tasks {
		// Task ids start at 1; id 0 is the inline sentinel.
		d.taskID[t.Name] = uint32(i + 1)
	}
	return nil
}

// shuffleSeed resolves the shuffle seed: Config.Seed when set,
// otherwise the +seed= plus-arg, otherwise DefaultSeed.
func (d *Driver) shuffleSeed() (int64, error) {
	if d.cfg.Seed != 0 {
		return d.cfg.Seed, nil
	}
	v, ok, err := d.reg.Args.PlusValue(seedArg)
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultSeed, nil
	}
	seed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("driver: bad +%s value %q: %w", seedArg, v, err)
	}
	return seed, nil
}

// runPass executes one evaluation pass: a begin marker, then every
// wave fork-join, then a single drain of the shared queue.
func (d *Driver) runPass(ctx context.Context, pass int64, waves [][]workload.TaskDecl) error {
	// The marker is posted without an active task, so it runs inline
	// and lands in the trace ahead of every drained action.
	marker := d.eng.NewOutbox()
	marker.Post(func() {
		d.trace.Record(pass, engine.NoTask, "pass", "begin")
	})

	for wi, wave := range waves {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("driver: pass %d canceled: %w", pass, err)
		}
		var wg sync.WaitGroup
		for w := 0; w < d.workers; w++ {
			var tasks []workload.TaskDecl
			for i := w; i < len(wave); i += d.workers {
				tasks = append(tasks, wave[i])
			}
			if len(tasks) == 0 {
				continue
			}
			wg.Add(1)
			go func(worker int64, tasks []workload.TaskDecl) {
				defer wg.Done()
				d.runWorker(pass, int64(wi), worker, tasks)
			}(int64(w), tasks)
		}
		wg.Wait()
	}

	if n := d.eng.PendingFlush(); n != 0 {
		return fmt.Errorf("driver: pass %d: %d buffered actions were never flushed", pass, n)
	}
	d.eng.Drain()
	if err := d.reg.Files.FlushAll(); err != nil {
		return fmt.Errorf("driver: pass %d: %w", pass, err)
	}
	return d.actErr
}

// runWorker executes the worker's share of one wave, then flushes its
// outbox. The shuffle varies posting order only; the queue
// re-establishes task order when the pass drains.
func (d *Driver) runWorker(pass, wave, worker int64, tasks []workload.TaskDecl) {
	rng := rand.New(rand.NewSource(d.seed + pass*1000003 + wave*10007 + worker))
	rng.Shuffle(len(tasks), func(i, j int) {
		tasks[i], tasks[j] = tasks[j], tasks[i]
	})

	out := d.eng.NewOutbox()
	for _, task := range tasks {
		out.SetTask(d.taskID[task.Name])
		for _, action := range task.Actions {
			d.post(out, pass, action)
		}
	}
	out.SetTask(engine.NoTask)
	out.Flush(d.eng.Queue())
}

// post defers one declared action through the worker's outbox. The
// closure runs when the pass drains.
func (d *Driver) post(out *engine.Outbox, pass int64, a workload.ActionDecl) {
	task := out.Task()
	switch a.Kind {
	case workload.ActionEmit:
		out.Post(func() {
			d.trace.Record(pass, task, a.Kind, a.Text)
		})
	case workload.ActionWrite:
		out.Post(func() {
			desc, ok := d.files[a.File]
			if !ok {
				d.fail(fmt.Errorf("driver: write to undeclared file %q", a.File))
				return
			}
			if _, err := d.reg.Files.Write(desc, []byte(a.Text+"\n")); err != nil {
				d.fail(fmt.Errorf("driver: write %s: %w", a.File, err))
				return
			}
			d.trace.Record(pass, task, a.Kind, a.File+" "+a.Text)
		})
	case workload.ActionPlusArg:
		out.Post(func() {
			arg, err := d.reg.Args.PlusMatch(a.Arg)
			if err != nil {
				d.fail(err)
				return
			}
			if arg == "" {
				d.trace.Record(pass, task, a.Kind, a.Arg+" miss")
				return
			}
			d.trace.Record(pass, task, a.Kind, a.Arg+" "+arg)
		})
	case workload.ActionExport:
		out.Post(func() {
			id, err := d.reg.Exports.Resolve(a.Name)
			if err != nil {
				d.fail(err)
				return
			}
			d.trace.Record(pass, task, a.Kind, fmt.Sprintf("%s=%d", a.Name, id))
		})
	case workload.ActionUser:
		out.Post(func() {
			sc, ok := d.scopes[a.Scope]
			if !ok {
				d.fail(fmt.Errorf("driver: user data on undeclared scope %q", a.Scope))
				return
			}
			d.reg.User.Set(sc, a.Name, a.Text)
			d.bumpActionCount(sc)
			d.trace.Record(pass, task, a.Kind, a.Scope+"."+a.Name)
		})
	}
}

// fail records the first action failure; later failures are dropped.
func (d *Driver) fail(err error) {
	if d.actErr == nil {
		d.actErr = err
	}
}

// bumpActionCount increments the scope's executed-action count in the
// user-data table.
func (d *Driver) bumpActionCount(sc *registry.Scope) {
	n, _ := d.reg.User.Get(sc, actionCountKey{}).(int64)
	d.reg.User.Set(sc, actionCountKey{}, n+1)
}

// actionCounts collects every scope's executed-action count.
func (d *Driver) actionCounts() map[string]int64 {
	counts := make(map[string]int64)
	for _, sc := range d.reg.Scopes.Snapshot() {
		if n, ok := d.reg.User.Get(sc, actionCountKey{}).(int64); ok {
			counts[sc.Name] = n
		}
	}
	return counts
}

// closeFiles closes every plan-declared descriptor in declaration
// order. Closing an already-closed descriptor is a no-op, so the
// deferred cleanup after an explicit close is harmless.
func (d *Driver) closeFiles() error {
	var errs []error
	for _, name := range d.fileOrder {
		if err := d.reg.Files.Close(d.files[name]); err != nil {
			errs = append(errs, fmt.Errorf("driver: close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
