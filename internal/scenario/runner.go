package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/gsacache"
	"github.com/hupe1980/gsacache/model"
)

// ErrExpectation is returned by Run when a step's results differ from what
// the scenario expects.
var ErrExpectation = errors.New("scenario expectation failed")

const defaultWorkers = 4

// Report is the outcome of a scenario run.
type Report struct {
	Name         string                     `json:"name"`
	Session      string                     `json:"session"`
	Steps        []StepResult               `json:"steps"`
	Natives      []string                   `json:"natives"`
	Expired      []string                   `json:"expired"`
	Reservations []gsacache.DumpReservation `json:"reservations"`
	Objects      map[string]int             `json:"objects"`
	Failures     []string                   `json:"failures,omitempty"`
}

// StepResult summarizes one executed step.
type StepResult struct {
	Step    int      `json:"step"`
	Op      string   `json:"op"`
	Summary string   `json:"summary"`
	Errors  []string `json:"errors,omitempty"`
}

// Runner executes scenarios against a cache.
type Runner struct {
	cache   *gsacache.Cache
	workers int
}

// NewRunner creates a runner over c.
func NewRunner(c *gsacache.Cache) *Runner {
	return &Runner{cache: c, workers: defaultWorkers}
}

// Run creates a cache for s, executes every step and reports the final state.
// The cache is returned for further inspection (e.g. Dump). A non-nil error
// wraps ErrExpectation when the run completed but expectations failed.
func Run(ctx context.Context, s *Scenario, opts ...gsacache.Option) (*Report, *gsacache.Cache, error) {
	if s.Session != "" {
		opts = append(opts, gsacache.WithSessionID(s.Session))
	}
	c := gsacache.New(opts...)
	r := NewRunner(c)
	if s.Workers > 0 {
		r.workers = s.Workers
	}
	rep, err := r.Run(ctx, s)
	return rep, c, err
}

// Run executes the steps of s in order.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Report, error) {
	rep := &Report{Name: s.Name}

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := StepResult{Step: i + 1, Op: st.Op}

		var err error
		switch st.Op {
		case OpHydrate:
			r.hydrate(st, &res)
		case OpResolve:
			if st.Parallel {
				err = r.resolveParallel(ctx, st, &res, rep)
			} else {
				r.resolve(st, &res, rep)
			}
		case OpReceive:
			err = r.receive(st, &res)
		case OpMarkPrevious:
			n := r.cache.MarkAsPrevious(st.Streams...)
			res.Summary = fmt.Sprintf("%d record(s) marked previous", n)
			if len(st.Streams) > 0 {
				res.Summary += " in " + strings.Join(st.Streams, ",")
			}
		default:
			err = fmt.Errorf("unknown op %q", st.Op)
		}
		if err != nil {
			return rep, fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
		rep.Steps = append(rep.Steps, res)
	}

	r.snapshot(rep)
	if len(rep.Failures) > 0 {
		return rep, fmt.Errorf("%w: %d failure(s)", ErrExpectation, len(rep.Failures))
	}
	return rep, nil
}

func (r *Runner) hydrate(st Step, res *StepResult) {
	values := make([]model.NativeValue, len(st.Records))
	for i, rec := range st.Records {
		values[i] = rec
	}
	n, err := r.cache.UpsertBatch(values, st.Latest)
	res.Summary = fmt.Sprintf("%d record(s), %d failed", n, len(values)-n)
	res.Errors = splitErrors(err)
}

func (r *Runner) resolve(st Step, res *StepResult, rep *Report) {
	got := r.cache.ResolveIndices(st.Type, st.ApplicationIDs)

	parts := make([]string, len(got))
	for i, idx := range got {
		parts[i] = fmt.Sprintf("%s=%d", label(st.ApplicationIDs[i]), idx)
		if len(st.Expect) > 0 && st.Expect[i] != idx {
			rep.Failures = append(rep.Failures, fmt.Sprintf("step %d: %s/%s resolved to %d, expected %d",
				res.Step, st.Type, label(st.ApplicationIDs[i]), idx, st.Expect[i]))
		}
	}
	res.Summary = fmt.Sprintf("%s %s", st.Type, strings.Join(parts, " "))
}

// resolveParallel resolves on concurrent workers. Which id gets which fresh
// index depends on scheduling, so only the set of indices is reported; the
// step fails if two distinct ids were given the same index.
func (r *Runner) resolveParallel(ctx context.Context, st Step, res *StepResult, rep *Report) error {
	got := make([]int, len(st.ApplicationIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, app := range st.ApplicationIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			got[i] = r.cache.ResolveIndex(st.Type, app)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	owner := make(map[int]string, len(got))
	for i, idx := range got {
		app := st.ApplicationIDs[i]
		if prev, ok := owner[idx]; ok && (prev != app || app == "") {
			rep.Failures = append(rep.Failures, fmt.Sprintf("step %d: %s/%d handed to both %s and %s",
				res.Step, st.Type, idx, label(prev), label(app)))
			continue
		}
		owner[idx] = app
	}

	indices := slices.Sorted(maps.Keys(owner))
	res.Summary = fmt.Sprintf("%s %d id(s) on %d worker(s) -> %v", st.Type, len(got), r.workers, indices)
	return nil
}

func (r *Runner) receive(st Step, res *StepResult) error {
	layer, err := model.ParseLayer(st.Layer)
	if err != nil {
		return err
	}

	objs := make(map[string]any, len(st.Objects))
	for _, app := range st.Objects {
		objs[app] = map[string]any{
			"application_id": app,
			"type":           string(st.Record.Type),
		}
	}

	linkErr := r.cache.SetSpeckleObjects(*st.Record, objs, layer)
	res.Summary = fmt.Sprintf("%s/%d %s %d object(s)", st.Record.Type, st.Record.Index, layer, len(objs))
	res.Errors = splitErrors(linkErr)
	return nil
}

func (r *Runner) snapshot(rep *Report) {
	doc := r.cache.Document()
	rep.Session = doc.SessionID
	rep.Reservations = doc.Reservations

	for _, v := range r.cache.GetNatives() {
		rep.Natives = append(rep.Natives, describe(v))
	}
	for _, v := range r.cache.GetExpiredRecords() {
		rep.Expired = append(rep.Expired, describe(v))
	}

	rep.Objects = make(map[string]int)
	for _, l := range []model.Layer{model.LayerDesign, model.LayerAnalysis, model.LayerBoth} {
		rep.Objects[l.String()] = len(r.cache.GetSpeckleObjectsByLayer(l))
	}
}

// WriteText renders the report as plain text.
func (rep *Report) WriteText(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario: %s\n", rep.Name)
	fmt.Fprintf(&b, "session: %s\n", rep.Session)
	b.WriteString("\nsteps:\n")
	for _, st := range rep.Steps {
		fmt.Fprintf(&b, "  %d %s: %s\n", st.Step, st.Op, st.Summary)
		for _, e := range st.Errors {
			fmt.Fprintf(&b, "    ! %s\n", e)
		}
	}

	section(&b, "natives", rep.Natives)
	section(&b, "expired", rep.Expired)

	res := make([]string, len(rep.Reservations))
	for i, r := range rep.Reservations {
		res[i] = fmt.Sprintf("%s/%d %s", r.SchemaType, r.Index, label(r.ApplicationID))
	}
	section(&b, "reservations", res)

	fmt.Fprintf(&b, "\nobjects: design=%d analysis=%d both=%d\n",
		rep.Objects["design"], rep.Objects["analysis"], rep.Objects["both"])

	if len(rep.Failures) > 0 {
		section(&b, "failures", rep.Failures)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string, lines []string) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(lines) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(b, "  %s\n", l)
	}
}

func describe(v model.NativeValue) string {
	return fmt.Sprintf("%s/%d %s", v.SchemaType(), v.NativeIndex(), label(v.ApplicationID()))
}

func label(app string) string {
	if model.NormalizeApplicationID(app) == "" {
		return "(anonymous)"
	}
	return app
}

func splitErrors(err error) []string {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
