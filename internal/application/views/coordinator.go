package views

import (
	"time"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/layout"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/occlusion"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/prometheus"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// Ticket identifies one outstanding query. Responses carrying an older
// ticket are discarded.
type Ticket uint64

// Coordinator runs the three views over one dataset. It is not safe for
// concurrent use; callers serialize access (see the session package).
type Coordinator struct {
	logger   logging.Logger
	metrics  *prometheus.AppMetrics
	surface  Surface
	store    *Store
	opts     Options
	settings map[Kind]Settings
	minInit  int

	views     map[Kind]View
	scatter   *ScatterView
	status    map[Kind]Status
	viewports map[Kind]Viewport
	drawings  map[Kind]Drawing

	ds          *prediction.Dataset
	generation  uint64
	inFlight    bool
	loading     bool
	unsubscribe func()
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(l logging.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithMetrics records pipeline durations.
func WithMetrics(m *prometheus.AppMetrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// WithSurface sets where drawings are sent; the default discards them.
func WithSurface(s Surface) CoordinatorOption {
	return func(c *Coordinator) { c.surface = s }
}

// WithOptions overrides rendering options. Zero fields keep their defaults.
func WithOptions(o Options) CoordinatorOption {
	return func(c *Coordinator) { c.opts = o }
}

// WithSettings overrides the starting display modes of some views.
func WithSettings(s map[Kind]Settings) CoordinatorOption {
	return func(c *Coordinator) { c.settings = s }
}

// WithInitialSubjects sets how many subjects a new dataset starts with
// selected; whole groups are taken until at least n are selected.
func WithInitialSubjects(n int) CoordinatorOption {
	return func(c *Coordinator) { c.minInit = n }
}

// WithViewport sets the starting viewport of kind.
func WithViewport(kind Kind, vp Viewport) CoordinatorOption {
	return func(c *Coordinator) { c.viewports[kind] = vp }
}

// NewCoordinator returns a coordinator with every view empty.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		logger:    logging.NewNopLogger(),
		surface:   discardSurface{},
		opts:      DefaultOptions(),
		minInit:   6,
		status:    make(map[Kind]Status, len(AllKinds)),
		viewports: make(map[Kind]Viewport, len(AllKinds)),
		drawings:  make(map[Kind]Drawing, len(AllKinds)),
	}
	for _, k := range AllKinds {
		c.viewports[k] = Viewport{Width: 800, Height: 600}
		c.status[k] = StatusEmpty
	}
	for _, o := range opts {
		o(c)
	}
	c.opts = c.opts.withDefaults()
	c.store = NewStore(c.settings)
	c.scatter = NewScatterView(c.opts)
	c.views = map[Kind]View{
		KindHeatMap: NewHeatMapView(c.opts),
		KindSetView: NewSetView(c.opts),
		KindScatter: c.scatter,
	}
	c.unsubscribe = c.store.Subscribe(c.onChange)
	return c
}

// Close detaches the coordinator from its store.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Store exposes the state store so that other components can observe it.
func (c *Coordinator) Store() *Store { return c.store }

// State returns the current display state.
func (c *Coordinator) State() Snapshot { return c.store.Current() }

// Dataset returns the loaded dataset, or nil.
func (c *Coordinator) Dataset() *prediction.Dataset { return c.ds }

// Status returns the lifecycle state of kind.
func (c *Coordinator) Status(kind Kind) Status { return c.status[kind] }

// Viewport returns the viewport kind renders into.
func (c *Coordinator) Viewport(kind Kind) Viewport { return c.viewports[kind] }

// Drawing returns what kind drew last.
func (c *Coordinator) Drawing(kind Kind) (Drawing, error) {
	if _, ok := c.views[kind]; !ok {
		return Drawing{}, errors.Newf(errors.ErrCodeUnknownView, "unknown view %q", kind)
	}
	return c.drawings[kind], nil
}

// Anchors returns the scatter anchors, or nil when the scatter view is empty.
func (c *Coordinator) Anchors() []layout.Anchor {
	if c.status[KindScatter] != StatusPopulated || c.scatter.Layout() == nil {
		return nil
	}
	return c.scatter.Layout().Anchors()
}

// ─────────────────────────────────────────────────────────────────────────────
// Query lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// BeginQuery reserves the single query slot and returns its ticket.
func (c *Coordinator) BeginQuery() (Ticket, error) {
	if c.inFlight {
		return 0, errors.New(errors.ErrCodeQueryInFlight, "a query is already running")
	}
	c.generation++
	c.inFlight = true
	c.logger.Info("query started", logging.Uint64("generation", c.generation))
	return Ticket(c.generation), nil
}

// InFlight reports whether a query is outstanding.
func (c *Coordinator) InFlight() bool { return c.inFlight }

// Current returns the ticket of the newest query.
func (c *Coordinator) Current() Ticket { return Ticket(c.generation) }

func (c *Coordinator) stale(t Ticket) error {
	if c.metrics != nil {
		c.metrics.RecordStaleResponse()
	}
	c.logger.Warn("discarding stale response",
		logging.Uint64("ticket", uint64(t)), logging.Uint64("generation", c.generation))
	return errors.Newf(errors.ErrCodeStaleResponse, "response for query %d superseded by %d", t, c.generation)
}

// CompleteQuery loads ds if t is still the newest query. Older responses
// are discarded with a stale-response error and change nothing.
func (c *Coordinator) CompleteQuery(t Ticket, ds *prediction.Dataset) error {
	if uint64(t) != c.generation || !c.inFlight {
		return c.stale(t)
	}
	c.inFlight = false
	c.Load(ds)
	c.logger.Info("query completed",
		logging.Uint64("generation", c.generation),
		logging.Int("subjects", len(ds.Subjects())),
		logging.Int("predictions", len(ds.Predictions)))
	return nil
}

// FailQuery releases the query slot. Views keep what they last drew.
func (c *Coordinator) FailQuery(t Ticket, cause error) error {
	if uint64(t) != c.generation || !c.inFlight {
		return c.stale(t)
	}
	c.inFlight = false
	c.logger.Warn("query failed", logging.Uint64("generation", c.generation), logging.Err(cause))
	return nil
}

// CancelQuery abandons the outstanding query; its response will be stale.
func (c *Coordinator) CancelQuery() bool {
	if !c.inFlight {
		return false
	}
	c.generation++
	c.inFlight = false
	c.logger.Info("query cancelled", logging.Uint64("generation", c.generation))
	return true
}

// Load replaces the dataset, clears every view and selects the initial
// subjects.
func (c *Coordinator) Load(ds *prediction.Dataset) {
	c.ds = ds
	for _, k := range AllKinds {
		c.views[k].Reset()
		c.clear(k)
	}
	c.loading = true
	c.store.Update(func(s Snapshot) Snapshot {
		return s.withSelected(ds.InitialSelection(c.minInit))
	})
	c.loading = false
	c.refresh("load", AllKinds...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Filter state
// ─────────────────────────────────────────────────────────────────────────────

func (c *Coordinator) requireDataset() error {
	if c.ds == nil {
		return errors.New(errors.ErrCodeNoDataset, "no dataset loaded")
	}
	return nil
}

// SetSelected replaces the selected subjects.
func (c *Coordinator) SetSelected(ids []string) error {
	if err := c.requireDataset(); err != nil {
		return err
	}
	for _, id := range ids {
		if !c.ds.HasSubject(id) {
			return errors.Newf(errors.ErrCodeUnknownSubject, "unknown subject %q", id)
		}
	}
	ordered := c.ds.Order(ids)
	c.store.Update(func(s Snapshot) Snapshot { return s.withSelected(ordered) })
	return nil
}

// Select adds a subject to the selection.
func (c *Coordinator) Select(id string) error {
	return c.SetSelected(append(c.store.Current().Selected(), id))
}

// Deselect removes a subject from the selection.
func (c *Coordinator) Deselect(id string) error {
	if err := c.requireDataset(); err != nil {
		return err
	}
	if !c.ds.HasSubject(id) {
		return errors.Newf(errors.ErrCodeUnknownSubject, "unknown subject %q", id)
	}
	cur := c.store.Current().Selected()
	kept := cur[:0]
	for _, s := range cur {
		if s != id {
			kept = append(kept, s)
		}
	}
	return c.SetSelected(kept)
}

// SetSharing switches the sharing mode of every view.
func (c *Coordinator) SetSharing(m prediction.SharingMode) error {
	m, err := prediction.ParseSharingMode(string(m))
	if err != nil {
		return err
	}
	c.store.Update(func(s Snapshot) Snapshot { return s.withSharing(m) })
	return nil
}

// SetSort changes the sort mode of one view.
func (c *Coordinator) SetSort(kind Kind, m prediction.SortMode) error {
	m, err := prediction.ParseSortMode(string(m))
	if err != nil {
		return err
	}
	return c.updateSettings(kind, func(s Settings) Settings { s.Sort = m; return s })
}

// SetScale changes the scale mode of one view.
func (c *Coordinator) SetScale(kind Kind, m prediction.ScaleMode) error {
	m, err := prediction.ParseScaleMode(string(m))
	if err != nil {
		return err
	}
	return c.updateSettings(kind, func(s Settings) Settings { s.Scale = m; return s })
}

func (c *Coordinator) updateSettings(kind Kind, fn func(Settings) Settings) error {
	if _, ok := c.views[kind]; !ok {
		return errors.Newf(errors.ErrCodeUnknownView, "unknown view %q", kind)
	}
	c.store.Update(func(s Snapshot) Snapshot { return s.withSettings(kind, fn(s.Settings(kind))) })
	return nil
}

// SetViewport resizes one view and redraws it. The scatter layout keeps its
// anchors.
func (c *Coordinator) SetViewport(kind Kind, vp Viewport) error {
	if _, ok := c.views[kind]; !ok {
		return errors.Newf(errors.ErrCodeUnknownView, "unknown view %q", kind)
	}
	if !vp.Valid() {
		return errors.Newf(errors.ErrCodeValidation, "viewport %gx%g must be positive", vp.Width, vp.Height)
	}
	c.viewports[kind] = vp
	if c.status[kind] == StatusPopulated {
		if kind == KindScatter && !c.scatter.Dragging() {
			c.resolveScatter()
		}
		c.redraw(kind)
	}
	return nil
}

func (c *Coordinator) onChange(prev, next Snapshot) {
	if c.loading || c.ds == nil {
		return
	}
	ch := Diff(prev, next)
	if ch.Selection || ch.Sharing {
		c.refresh("filter", AllKinds...)
		return
	}
	c.refresh("settings", ch.Views...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scatter interaction
// ─────────────────────────────────────────────────────────────────────────────

func (c *Coordinator) requireScatter() error {
	if err := c.requireDataset(); err != nil {
		return err
	}
	if c.status[KindScatter] != StatusPopulated {
		return errors.New(errors.ErrCodeTooFewSubjects, "scatter view needs at least two selected subjects")
	}
	return nil
}

// DragSubject moves a scatter anchor by a pointer offset of dx, dy pixels from
// where the drag began. final marks the last frame of the drag.
func (c *Coordinator) DragSubject(id string, dx, dy float64, final bool) error {
	if err := c.requireScatter(); err != nil {
		return err
	}
	start := time.Now()
	if err := c.scatter.Drag(c.viewports[KindScatter], id, dx, dy, final); err != nil {
		return err
	}
	c.observe(KindScatter, "drag", start)
	if final {
		c.recordOcclusion()
	}
	c.redraw(KindScatter)
	return nil
}

// ResolveOcclusion reruns label occlusion on the scatter view, with measured
// boxes when the renderer supplies them. It returns how many labels are
// hidden.
func (c *Coordinator) ResolveOcclusion(boxes []occlusion.Box) (int, error) {
	if err := c.requireScatter(); err != nil {
		return 0, err
	}
	hidden, err := c.scatter.ResolveOcclusion(c.viewports[KindScatter], boxes)
	if err != nil {
		return 0, err
	}
	if c.metrics != nil {
		c.metrics.RecordOcclusion(hidden)
	}
	c.redraw(KindScatter)
	return hidden, nil
}

// LabelBoxes returns the estimated scatter label boxes in draw order.
func (c *Coordinator) LabelBoxes() ([]occlusion.Box, error) {
	if err := c.requireScatter(); err != nil {
		return nil, err
	}
	return c.scatter.LabelBoxes(c.viewports[KindScatter]), nil
}

// Search maps a ";"-separated list of term names to prediction ids.
func (c *Coordinator) Search(query string) (prediction.SearchResult, error) {
	if err := c.requireDataset(); err != nil {
		return prediction.SearchResult{}, err
	}
	return c.ds.Search(query)
}

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline
// ─────────────────────────────────────────────────────────────────────────────

// refresh reruns the full pipeline of each kind. A view without enough
// selected subjects is cleared and left empty.
func (c *Coordinator) refresh(trigger string, kinds ...Kind) {
	snap := c.store.Current()
	for _, k := range kinds {
		v := c.views[k]
		st := snap.Filter(k)
		if c.ds == nil || st.SelectedCount() < k.MinSubjects() {
			v.Reset()
			c.clear(k)
			continue
		}
		start := time.Now()
		v.Filter(c.ds, st)
		v.Arrange()
		if k == KindScatter && !c.scatter.Dragging() {
			c.resolveScatter()
		}
		c.observe(k, trigger, start)
		c.status[k] = StatusPopulated
		c.redraw(k)
	}
}

func (c *Coordinator) resolveScatter() {
	if _, err := c.scatter.ResolveOcclusion(c.viewports[KindScatter], nil); err != nil {
		c.logger.Error("label occlusion failed", logging.Err(err))
		return
	}
	c.recordOcclusion()
}

func (c *Coordinator) recordOcclusion() {
	if c.metrics == nil {
		return
	}
	if flags := c.scatter.Occluded(); flags != nil {
		c.metrics.RecordOcclusion(len(flags) - occlusion.Visible(flags))
	}
}

func (c *Coordinator) observe(k Kind, trigger string, start time.Time) {
	d := time.Since(start)
	n := c.views[k].Len()
	c.logger.Debug("pipeline run",
		logging.View(k.String()), logging.String("trigger", trigger),
		logging.Int("terms", n), logging.Duration("duration", d))
	if c.metrics != nil {
		c.metrics.RecordPipeline(k.String(), trigger, n, d)
	}
}

// redraw clears the surface and draws the view again; drawing without the
// clear would duplicate every primitive.
func (c *Coordinator) redraw(k Kind) {
	d := c.views[k].Render(c.viewports[k])
	c.drawings[k] = d
	c.surface.Clear(k)
	c.surface.Draw(k, d)
}

func (c *Coordinator) clear(k Kind) {
	c.status[k] = StatusEmpty
	c.drawings[k] = Drawing{Kind: k, Width: c.viewports[k].Width, Height: c.viewports[k].Height}
	c.surface.Clear(k)
}
