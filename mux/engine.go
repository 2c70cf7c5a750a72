// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/engine.go
// Summary: Single event loop owning the session graph.
// Usage: One ordered queue merges gateway events, command requests and
// timer firings; exactly one item runs to completion at a time, which is
// the whole concurrency story for the entity graph.

package mux

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/wm"
)

var (
	ErrGatewayUnavailable = errors.New("mux: gateway unavailable")
	ErrTimeout            = errors.New("mux: timed out waiting for a window")
	ErrStopped            = errors.New("mux: engine stopped")
)

// Options tunes engine behaviour. Zero values are replaced by the
// defaults below.
type Options struct {
	// Screen is the rectangle workspaces tile.
	Screen layout.Rect
	// AdoptUntracked pulls unknown new windows into the current
	// session's active workspace. Default is to ignore them: silently
	// absorbing arbitrary windows surprises more than it helps.
	AdoptUntracked bool
	// RelayoutOnExternalMove folds user-initiated moves back into the
	// tree ratios. Default off: fighting manual drags desyncs less than
	// silently accepting them.
	RelayoutOnExternalMove bool
	// AdoptionTimeout bounds how long a split waits for its window.
	AdoptionTimeout time.Duration
	// BackoffBase/BackoffMax shape gateway reconnect delays.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// PersistentSessions makes new sessions survive their last pane.
	PersistentSessions bool
}

func (o Options) withDefaults() Options {
	if o.Screen.W == 0 || o.Screen.H == 0 {
		o.Screen = layout.Rect{W: 1920, H: 1080}
	}
	if o.AdoptionTimeout <= 0 {
		o.AdoptionTimeout = 5 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	return o
}

// envelope is one item of the merged queue. Ordering is decided at the
// moment an envelope is enqueued, never by I/O completion order.
type envelope interface{ isEnvelope() }

type reqEnvelope struct{ fn func() }
type gwEventEnvelope struct{ ev wm.Event }
type streamLostEnvelope struct{}
type reconnectEnvelope struct{}
type resyncEnvelope struct {
	windows []wm.Window
	err     error
}
type bindTimeoutEnvelope struct{ pane uuid.UUID }
type applyErrorEnvelope struct {
	handle wm.Handle
	err    error
}

func (reqEnvelope) isEnvelope()         {}
func (gwEventEnvelope) isEnvelope()     {}
func (streamLostEnvelope) isEnvelope()  {}
func (reconnectEnvelope) isEnvelope()   {}
func (resyncEnvelope) isEnvelope()      {}
func (bindTimeoutEnvelope) isEnvelope() {}
func (applyErrorEnvelope) isEnvelope()  {}

type applyJob struct {
	handle wm.Handle
	geom   layout.Rect
	focus  bool
}

// pendingBind is a pane waiting for its window after a split.
type pendingBind struct {
	pane    uuid.UUID
	reply   chan<- splitResult
	timer   *time.Timer
	created time.Time
}

type splitResult struct {
	pane uuid.UUID
	err  error
}

// Engine runs the session state machine and keeps it reconciled with the
// window manager's event stream.
type Engine struct {
	store    *Store
	gw       wm.Gateway
	opts     Options
	logger   *zap.Logger
	notifier Notifier

	queue     chan envelope
	applyJobs chan applyJob
	stopped   chan struct{}

	// Everything below is owned by the loop goroutine.
	degraded bool
	backoff  time.Duration
	pending  []*pendingBind
	expected map[wm.Handle]layout.Rect
	current  string // adoption target session
}

// NewEngine wires an engine over an existing store (usually restored from
// a snapshot) and a gateway.
func NewEngine(store *Store, gw wm.Gateway, opts Options, notifier Notifier, logger *zap.Logger) *Engine {
	if store == nil {
		store = NewStore()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Engine{
		store:     store,
		gw:        gw,
		opts:      opts,
		logger:    logger,
		notifier:  notifier,
		queue:     make(chan envelope, 256),
		applyJobs: make(chan applyJob, 256),
		stopped:   make(chan struct{}),
		backoff:   opts.BackoffBase,
		expected:  make(map[wm.Handle]layout.Rect),
	}
}

// Run processes the merged queue until ctx is cancelled. It owns the
// entity graph for its whole lifetime.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)

	go e.applyWorker(ctx)
	e.startStream(ctx)

	for {
		select {
		case <-ctx.Done():
			e.failPending(ErrStopped)
			// Closing the gateway ends the event stream, which releases
			// the subscription-forwarding goroutine.
			if err := e.gw.Close(); err != nil {
				e.logger.Debug("gateway close on shutdown", zap.Error(err))
			}
			return ctx.Err()
		case env := <-e.queue:
			e.dispatch(ctx, env)
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, env envelope) {
	switch v := env.(type) {
	case reqEnvelope:
		v.fn()
	case gwEventEnvelope:
		e.handleEvent(ctx, v.ev)
	case streamLostEnvelope:
		e.handleStreamLost(ctx)
	case reconnectEnvelope:
		e.startStream(ctx)
	case resyncEnvelope:
		e.handleResync(ctx, v)
	case bindTimeoutEnvelope:
		e.handleBindTimeout(v.pane)
	case applyErrorEnvelope:
		metricApplyErrors.Inc()
		e.logger.Warn("gateway apply failed",
			zap.String("handle", string(v.handle)), zap.Error(v.err))
	}
}

// post enqueues an envelope, giving up when the caller's context or the
// engine dies first.
func (e *Engine) post(ctx context.Context, env envelope) error {
	select {
	case e.queue <- env:
		return nil
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// postAsync enqueues from timers and I/O callbacks that have no caller
// context of their own.
func (e *Engine) postAsync(env envelope) {
	select {
	case e.queue <- env:
	case <-e.stopped:
	}
}

// --- gateway stream management -----------------------------------------

func (e *Engine) startStream(ctx context.Context) {
	events, err := e.gw.Subscribe(ctx)
	if err != nil {
		e.degraded = true
		e.scheduleReconnect()
		e.logger.Warn("gateway subscribe failed", zap.Error(err), zap.Duration("retry_in", e.backoff))
		return
	}
	go func() {
		for ev := range events {
			e.postAsync(gwEventEnvelope{ev: ev})
		}
		e.postAsync(streamLostEnvelope{})
	}()
	// Every (re)established stream starts with a full diff against the
	// live window set.
	e.requestResync(ctx)
}

func (e *Engine) handleStreamLost(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	orphaned := e.store.Orphan()
	e.degraded = true
	e.expected = make(map[wm.Handle]layout.Rect)
	e.logger.Warn("gateway stream lost, entering degraded mode", zap.Int("orphaned_panes", orphaned))
	e.scheduleReconnect()
}

// nextBackoff returns the current retry delay with 20% jitter and
// advances the exponential backoff.
func (e *Engine) nextBackoff() time.Duration {
	delay := e.backoff
	jitter := time.Duration(rand.Int63n(int64(delay)/5+1)) - delay/10

	e.backoff *= 2
	if e.backoff > e.opts.BackoffMax {
		e.backoff = e.opts.BackoffMax
	}
	return delay + jitter
}

// scheduleReconnect arms the next reconnect attempt.
func (e *Engine) scheduleReconnect() {
	time.AfterFunc(e.nextBackoff(), func() { e.postAsync(reconnectEnvelope{}) })
}

// requestResync lists the live window set off-loop and posts the result
// back into the queue.
func (e *Engine) requestResync(ctx context.Context) {
	go func() {
		windows, err := e.gw.List(ctx)
		e.postAsync(resyncEnvelope{windows: windows, err: err})
	}()
}

// handleResync is the sole drift-repair mechanism: the live window list
// is diffed against every tracked pane.
func (e *Engine) handleResync(ctx context.Context, v resyncEnvelope) {
	if v.err != nil {
		e.logger.Warn("window list failed during resync", zap.Error(v.err))
		e.degraded = true
		// The event stream may still be healthy; retry the list alone
		// instead of stacking a second subscription.
		time.AfterFunc(e.nextBackoff(), func() { e.requestResync(ctx) })
		return
	}

	live := make(map[wm.Handle]wm.Window, len(v.windows))
	for _, w := range v.windows {
		live[w.Handle] = w
	}

	// Pass 1: settle tracked panes. Orphans whose window survived return
	// to Bound with their pane identity intact; the rest are destroyed
	// exactly as if the event stream had delivered Destroyed.
	for _, p := range e.store.OrphanedPanes() {
		if w, ok := live[p.Handle]; ok {
			if err := e.store.Bind(p.ID, w.Handle, w.Attrs); err != nil {
				e.logger.Error("rebind failed", zap.String("pane", p.ID.String()), zap.Error(err))
			}
			continue
		}
		e.logger.Info("window vanished while disconnected", zap.String("pane", p.ID.String()))
		e.destroyPane(p.ID)
	}

	// Pass 2: untracked live windows run through the same adoption path
	// as a fresh Created event.
	for _, w := range v.windows {
		if _, bound := e.store.PaneByHandle(w.Handle); bound {
			continue
		}
		e.adoptOrIgnore(w.Handle, w.Attrs)
	}

	wasDegraded := e.degraded
	e.degraded = false
	e.backoff = e.opts.BackoffBase
	if wasDegraded {
		metricReconnects.Inc()
		e.logger.Info("gateway resynced", zap.Int("windows", len(v.windows)))
	}
	e.applyAllActiveLayouts()
}

// --- window event handling ---------------------------------------------

func (e *Engine) handleEvent(ctx context.Context, ev wm.Event) {
	metricGatewayEvents.WithLabelValues(ev.Kind.String()).Inc()
	switch ev.Kind {
	case wm.EventCreated:
		e.handleCreated(ev.Handle, ev.Attrs)
	case wm.EventDestroyed:
		e.handleDestroyed(ev.Handle)
	case wm.EventMoved:
		e.handleMoved(ev.Handle, ev.Geometry)
	case wm.EventFocusChanged:
		e.handleFocusChanged(ev.Handle)
	}
}

func (e *Engine) handleCreated(h wm.Handle, attrs wm.Attrs) {
	if _, ok := e.store.PaneByHandle(h); ok {
		return // duplicate Created for a handle we already track
	}

	// A pending split claims the window before any policy runs.
	if pb := e.takeOldestPending(); pb != nil {
		if err := e.store.Bind(pb.pane, h, attrs); err != nil {
			e.logger.Error("pending bind failed", zap.Error(err))
			pb.reply <- splitResult{err: err}
			return
		}
		metricAdoptions.Inc()
		p, _ := e.store.Pane(pb.pane)
		e.applyWorkspaceLayout(p.workspace)
		e.notifier.PaneBound(p.workspace.session.Name, pb.pane, h, attrs)
		pb.reply <- splitResult{pane: pb.pane}
		return
	}

	// The descriptor of an unbound restored pane can also claim it.
	for _, p := range e.store.UnboundPanes() {
		if p.Class != "" && p.Class == attrs.Class && (p.Title == "" || p.Title == attrs.Title) {
			if err := e.store.Bind(p.ID, h, attrs); err != nil {
				continue
			}
			metricAdoptions.Inc()
			e.applyWorkspaceLayout(p.workspace)
			e.notifier.PaneBound(p.workspace.session.Name, p.ID, h, attrs)
			return
		}
	}

	e.adoptOrIgnore(h, attrs)
}

// adoptOrIgnore applies the untracked-window policy.
func (e *Engine) adoptOrIgnore(h wm.Handle, attrs wm.Attrs) {
	if !e.opts.AdoptUntracked {
		e.logger.Debug("ignoring untracked window",
			zap.String("handle", string(h)), zap.String("class", attrs.Class))
		return
	}
	target, err := e.adoptionTarget()
	if err != nil {
		e.logger.Debug("no adoption target", zap.String("handle", string(h)))
		return
	}

	var p *Pane
	if target.Root == nil {
		p, err = e.store.AddRootPane(target)
	} else {
		p, err = e.store.SplitPane(target.active, layout.Horizontal, layout.DefaultRatio)
	}
	if err != nil {
		e.logger.Warn("adoption failed", zap.Error(err))
		return
	}
	if err := e.store.Bind(p.ID, h, attrs); err != nil {
		e.logger.Error("adoption bind failed", zap.Error(err))
		_, _ = e.store.DestroyPane(p.ID)
		return
	}
	metricAdoptions.Inc()
	e.applyWorkspaceLayout(target)
	e.notifier.PaneBound(target.session.Name, p.ID, h, attrs)
}

func (e *Engine) adoptionTarget() (*Workspace, error) {
	if e.current != "" {
		if s, err := e.store.Session(e.current); err == nil && s.ActiveWorkspace() != nil {
			return s.ActiveWorkspace(), nil
		}
	}
	sessions := e.store.Sessions()
	if len(sessions) == 0 || sessions[0].ActiveWorkspace() == nil {
		return nil, ErrNotFound
	}
	return sessions[0].ActiveWorkspace(), nil
}

func (e *Engine) handleDestroyed(h wm.Handle) {
	p, ok := e.store.PaneByHandle(h)
	if !ok {
		return
	}
	delete(e.expected, h)
	e.destroyPane(p.ID)
}

// destroyPane removes a pane whose window is gone and replays the
// cascade consequences to clients.
func (e *Engine) destroyPane(id uuid.UUID) {
	p, err := e.store.Pane(id)
	if err != nil {
		return
	}
	ws := p.workspace
	session := ws.session

	destroyedSession, err := e.store.DestroyPane(id)
	if err != nil {
		e.logger.Error("pane removal failed", zap.String("pane", id.String()), zap.Error(err))
		return
	}
	if destroyedSession != "" {
		e.notifier.SessionDestroyed(destroyedSession)
		if e.current == destroyedSession {
			e.current = ""
		}
		return
	}
	if len(ws.panes) > 0 {
		e.applyWorkspaceLayout(ws)
		return
	}
	// The workspace went away; the session's new active workspace (if
	// any) carries the layout clients now see.
	if active := session.ActiveWorkspace(); active != nil {
		e.applyWorkspaceLayout(active)
	}
}

func (e *Engine) handleMoved(h wm.Handle, geom layout.Rect) {
	p, ok := e.store.PaneByHandle(h)
	if !ok {
		return
	}
	if want, ok := e.expected[h]; ok && want == geom {
		// Echo of our own apply.
		delete(e.expected, h)
		p.Geometry = geom
		return
	}

	metricExternalMoves.Inc()
	p.Geometry = geom
	if !e.opts.RelayoutOnExternalMove {
		e.logger.Debug("external move recorded, tree ratios unchanged",
			zap.String("pane", p.ID.String()))
		return
	}
	ws := p.workspace
	adjusted, err := layout.AdjustRatio(ws.Root, e.opts.Screen, p.ID, geom)
	if err != nil {
		e.logger.Debug("external move not expressible as ratio change", zap.Error(err))
		return
	}
	ws.Root = adjusted
	e.applyWorkspaceLayout(ws)
}

func (e *Engine) handleFocusChanged(h wm.Handle) {
	p, ok := e.store.PaneByHandle(h)
	if !ok {
		return
	}
	ws := p.workspace
	ws.active = p.ID
	ws.session.active = ws
	e.current = ws.session.Name
	e.notifier.FocusChanged(ws.session.Name, ws.Name, p.ID)
}

// --- geometry application ----------------------------------------------

// applyWorkspaceLayout resolves a workspace tree and pushes geometries to
// the gateway, recording each as expected so the echoed Moved events are
// not mistaken for external overrides.
func (e *Engine) applyWorkspaceLayout(ws *Workspace) {
	if ws == nil || ws.Root == nil {
		return
	}
	geoms := layout.Resolve(ws.Root, e.opts.Screen)
	for id, geom := range geoms {
		p, ok := ws.panes[id]
		if !ok {
			continue
		}
		p.Geometry = geom
		if p.State == Bound && !e.degraded {
			e.expected[p.Handle] = geom
			e.enqueueApply(applyJob{handle: p.Handle, geom: geom})
		}
	}
	e.notifier.LayoutChanged(ws.session.Name, ws.Name, geoms)
}

func (e *Engine) applyAllActiveLayouts() {
	for _, s := range e.store.Sessions() {
		if ws := s.ActiveWorkspace(); ws != nil {
			e.applyWorkspaceLayout(ws)
		}
	}
}

func (e *Engine) enqueueApply(job applyJob) {
	select {
	case e.applyJobs <- job:
	default:
		// A full apply queue means the gateway is wedged; the resync
		// after reconnect re-establishes geometry.
		e.logger.Warn("apply queue full, dropping geometry command",
			zap.String("handle", string(job.handle)))
	}
}

// applyWorker serialises gateway writes off the event loop. Results come
// back through the queue, preserving the global ordering guarantee.
func (e *Engine) applyWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.applyJobs:
			opCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			var err error
			if job.focus {
				err = e.gw.Focus(opCtx, job.handle)
			} else {
				err = e.gw.Apply(opCtx, job.handle, job.geom)
			}
			cancel()
			if err != nil && ctx.Err() == nil {
				e.postAsync(applyErrorEnvelope{handle: job.handle, err: err})
			}
		}
	}
}

// --- pending binds -----------------------------------------------------

func (e *Engine) takeOldestPending() *pendingBind {
	if len(e.pending) == 0 {
		return nil
	}
	pb := e.pending[0]
	e.pending = e.pending[1:]
	pb.timer.Stop()
	return pb
}

func (e *Engine) handleBindTimeout(pane uuid.UUID) {
	for i, pb := range e.pending {
		if pb.pane != pane {
			continue
		}
		e.pending = append(e.pending[:i], e.pending[i+1:]...)
		metricAdoptionTimeouts.Inc()
		e.logger.Warn("no window appeared for pane", zap.String("pane", pane.String()))

		e.destroyPane(pane)
		pb.reply <- splitResult{err: ErrTimeout}
		return
	}
}

func (e *Engine) failPending(err error) {
	for _, pb := range e.pending {
		pb.timer.Stop()
		pb.reply <- splitResult{err: err}
	}
	e.pending = nil
}
