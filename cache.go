package gsacache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/gsacache/internal/objects"
	"github.com/hupe1980/gsacache/internal/records"
	"github.com/hupe1980/gsacache/model"
)

// Cache reconciles native records with domain objects for one sync session.
//
// All methods are safe for concurrent use. Every call, including lookups,
// runs under a single mutex so that no caller observes the secondary indices
// half updated. Returned slices are fresh copies.
type Cache struct {
	mu      sync.Mutex
	records *records.Store
	objects *objects.Store
	session string

	opts options
	log  *Logger
}

// New creates an empty cache.
func New(optFns ...Option) *Cache {
	o := applyOptions(optFns)
	c := &Cache{
		records: records.New(records.Options{
			Equal:         o.equal,
			ApplicationID: o.appIDFunc,
		}),
		objects: objects.New(),
		opts:    o,
	}
	c.startSession()
	return c
}

func (c *Cache) startSession() {
	c.session = c.opts.sessionID
	if c.session == "" {
		c.session = uuid.NewString()
	}
	c.log = c.opts.logger.WithSession(c.session)
}

// SessionID returns the id of the current sync session.
func (c *Cache) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Upsert stores a native record and returns its store position.
//
// latest may be nil. If an equal record already exists at the same native
// key, its position is returned and only its latest flag is updated (when
// latest is non-nil). Otherwise the record is appended, older values at that
// key lose their latest flag, and any reservation it collides with is moved.
func (c *Cache) Upsert(v model.NativeValue, latest *bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsert(v, latest)
}

// UpsertBatch upserts values in order and returns how many succeeded.
// A failing record does not stop the batch; all failures are joined into the
// returned error.
func (c *Cache) UpsertBatch(values []model.NativeValue, latest *bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	var errs []error
	for i, v := range values {
		if _, err := c.upsert(v, latest); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
		}
	}

	c.opts.metricsCollector.RecordBatchUpsert(len(values), len(errs), time.Since(start))
	c.log.LogBatchUpsert(context.Background(), len(values), len(errs))
	return len(values) - len(errs), errors.Join(errs...)
}

func (c *Cache) upsert(v model.NativeValue, latest *bool) (int, error) {
	ctx := context.Background()
	start := time.Now()

	res, err := c.records.Upsert(v, latest)
	err = translateError(err)
	c.opts.metricsCollector.RecordUpsert(time.Since(start), res.Created, err)

	var (
		t     string
		index int
	)
	if v != nil {
		t, index = string(v.SchemaType()), v.NativeIndex()
	}
	c.log.LogUpsert(ctx, t, index, res.Position, res.Created, err)
	if err != nil {
		return 0, err
	}

	if len(res.Rehomed) > 0 {
		c.opts.metricsCollector.RecordRehome(len(res.Rehomed))
		for _, r := range res.Rehomed {
			c.log.LogRehome(ctx, string(r.SchemaType), r.ApplicationID, r.From, r.To)
		}
	}
	return res.Position, nil
}

// ResolveIndex returns the native index to use for the record of type t
// identified by appID.
//
// An application id with a stored record round-trips to that record's index;
// one without gets a provisional reservation that is stable for the session
// and never shared with another id. An empty appID always gets a fresh index.
func (c *Cache) ResolveIndex(t model.SchemaType, appID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolve(t, appID)
}

// ResolveIndices resolves each application id in order.
func (c *Cache) ResolveIndices(t model.SchemaType, appIDs []string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]int, len(appIDs))
	for i, app := range appIDs {
		out[i] = c.resolve(t, app)
	}
	return out
}

func (c *Cache) resolve(t model.SchemaType, appID string) int {
	start := time.Now()
	index, state := c.records.ResolveIndex(t, appID)
	c.opts.metricsCollector.RecordResolve(state.String(), time.Since(start))
	c.log.LogResolve(context.Background(), string(t), appID, index, state.String())
	return index
}

// SetSpeckleObjects stores the domain objects converted from native record v,
// keyed by application id, on the given layer and links them to v's native key.
//
// Objects are processed in application id order. An object with a blank
// application id or one that cannot be linked is reported in the joined error
// without affecting the others.
func (c *Cache) SetSpeckleObjects(v model.NativeValue, objs map[string]any, layer model.Layer) error {
	if v == nil {
		return ErrNilValue
	}
	if !layer.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLayer, layer)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	t, index := v.SchemaType(), v.NativeIndex()

	apps := make([]string, 0, len(objs))
	for app := range objs {
		apps = append(apps, app)
	}
	slices.Sort(apps)

	var (
		errs      []error
		positions []int
		stored    []string
	)
	for _, app := range apps {
		if model.NormalizeApplicationID(app) == "" {
			errs = append(errs, &LinkError{SchemaType: t, Index: index, ApplicationID: app, cause: ErrInvalidApplicationID})
			continue
		}
		pos, err := c.objects.Upsert(objs[app], t, app, layer)
		if err != nil {
			errs = append(errs, &LinkError{SchemaType: t, Index: index, ApplicationID: app, cause: translateError(err)})
			continue
		}
		positions = append(positions, pos)
		stored = append(stored, app)
	}

	if len(positions) > 0 {
		if err := c.objects.LinkToNative(t, index, positions); err != nil {
			cause := translateError(err)
			// LinkToNative only fails wholesale (no index) or on positions it
			// did not hand out; either way every stored object is unlinked.
			for _, app := range stored {
				errs = append(errs, &LinkError{SchemaType: t, Index: index, ApplicationID: app, cause: cause})
			}
		}
	}

	err := errors.Join(errs...)
	c.opts.metricsCollector.RecordLink(len(objs), len(errs), time.Since(start))
	c.log.LogLink(context.Background(), string(t), index, len(objs), err)
	return err
}

// GetNatives returns the latest native values of the given types in store
// order, or of every type when none are given.
func (c *Cache) GetNatives(types ...model.SchemaType) []model.NativeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records.GetLatestAll(types...)
}

// GetNative returns the latest native value at (t, index).
func (c *Cache) GetNative(t model.SchemaType, index int) (model.NativeValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records.GetLatest(t, index)
}

// LookupIndex returns the native index of the record of type t carrying
// appID, choosing the highest when history holds several. Without a record,
// a provisional reservation made by ResolveIndex is returned. LookupIndex
// never allocates.
func (c *Cache) LookupIndex(t model.SchemaType, appID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(t, appID)
}

func (c *Cache) lookup(t model.SchemaType, appID string) (int, bool) {
	if index, ok := c.records.LookupNativeIndex(t, appID); ok {
		return index, true
	}
	return c.records.FindReservation(t, appID)
}

// LookupIndices looks up each application id and returns the distinct
// indices found in ascending order.
func (c *Cache) LookupIndices(t model.SchemaType, appIDs []string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]int, 0, len(appIDs))
	for _, app := range appIDs {
		if index, ok := c.lookup(t, app); ok {
			out = append(out, index)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// GetApplicationID returns the application id of the oldest record at
// (t, index), or "" when there is none. Records without their own id report
// the derived fallback id.
func (c *Cache) GetApplicationID(t model.SchemaType, index int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records.LookupApplicationID(t, index)
}

// GetSpeckleObjects returns the domain objects linked to (t, index) visible on layer.
func (c *Cache) GetSpeckleObjects(t model.SchemaType, index int, layer model.Layer) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.GetByTypeAndNativeIndex(t, index, layer)
}

// GetSpeckleObjectsByApplicationID returns the domain objects of type t with
// appID visible on layer.
func (c *Cache) GetSpeckleObjectsByApplicationID(t model.SchemaType, appID string, layer model.Layer) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.GetByTypeAndApplicationID(t, appID, layer)
}

// GetSpeckleObjectsByLayer returns every domain object visible on layer.
func (c *Cache) GetSpeckleObjectsByLayer(layer model.Layer) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.GetByLayer(layer)
}

// GetExpiredRecords returns alterable records that belonged to a previous
// state and are gone from the latest one. They are due for native deletion.
func (c *Cache) GetExpiredRecords() []model.NativeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records.Expired()
}

// GetDeletableRecords returns the current alterable records, for
// collaborators that delete and recreate rather than diff.
func (c *Cache) GetDeletableRecords() []model.NativeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records.Deletable()
}

// MarkAsPrevious starts a new reconciliation pass: all latest records, or
// only those of the named streams, become previous. Records re-upserted with
// a true latest hint afterwards are kept; the rest show up as expired.
func (c *Cache) MarkAsPrevious(streamIDs ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.records.MarkAsPrevious(streamIDs...)
	c.log.InfoContext(context.Background(), "marked records as previous",
		"count", n,
		"streams", streamIDs,
	)
	return n
}

// StreamIDs returns the distinct stream ids seen, in first-seen order.
func (c *Cache) StreamIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records.StreamIDs()
}

// Stats summarizes the cache contents.
type Stats struct {
	SessionID    string
	Records      int
	Objects      int
	Reservations int
	Streams      int
}

// Stats returns a snapshot of the cache size.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		SessionID:    c.session,
		Records:      c.records.Len(),
		Objects:      c.objects.Len(),
		Reservations: c.records.ReservationCount(),
		Streams:      len(c.records.StreamIDs()),
	}
}

// Clear discards all records, objects and reservations and starts a new
// session. A session id fixed with WithSessionID is kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	nRecords, nObjects := c.records.Len(), c.objects.Len()
	c.records.Clear()
	c.objects.Clear()
	c.log.LogClear(context.Background(), nRecords, nObjects)
	c.startSession()
}
