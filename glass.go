// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glass

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/glass/device"
	"github.com/gogpu/glass/pipeline"
	"github.com/gogpu/glass/postprocess"
	"github.com/gogpu/glass/surface"
	"github.com/gogpu/glass/target"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Glass runs the frame loop of an App over a set of windows.
//
// Glass is driven by one goroutine. Context.Enqueue is the only method
// that may be called from others.
type Glass struct {
	app  App
	ctx  *Context
	opts options

	dev        *device.Context
	ownsDevice bool
	reg        *pipeline.Registry
	alloc      *target.Allocator
	post       *postprocess.Pipelines

	// mu guards windows and order against Context.Enqueue. The loop
	// goroutine is the only writer and reads without it.
	mu      sync.RWMutex
	windows map[WindowID]*window
	order   []WindowID
	nextID  WindowID
	opened  bool

	frame  uint64
	exit   bool
	closed bool
}

// New opens the device, the pipeline registry and the post-process
// pipelines. No window exists until Context.OpenWindow or a WindowOpened
// event.
func New(app App, opts ...Option) (_ *Glass, err error) {
	if app == nil {
		app = BaseApp{}
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	g := &Glass{
		app:     app,
		opts:    o,
		windows: make(map[WindowID]*window),
	}
	g.ctx = &Context{g: g}
	defer func() {
		if err != nil {
			g.release()
		}
	}()

	switch {
	case o.device != nil:
		g.dev = o.device
	case o.deviceConfig != nil:
		cfg := *o.deviceConfig
		for _, opt := range o.deviceOptions {
			opt(&cfg)
		}
		if g.dev, err = device.NewWithConfig(cfg); err != nil {
			return nil, err
		}
		g.ownsDevice = true
	default:
		if g.dev, err = device.New(o.deviceOptions...); err != nil {
			return nil, err
		}
		g.ownsDevice = true
	}

	if g.reg, err = pipeline.NewRegistry(g.dev, o.registry...); err != nil {
		return nil, err
	}
	g.alloc = target.NewAllocator(g.dev.Device(), target.AllocatorConfig{BudgetBytes: o.targetBudget})
	if g.post, err = postprocess.NewPipelines(g.dev, g.reg); err != nil {
		return nil, err
	}
	slogger().Info("glass: ready", "adapter", g.dev.Info().Name, "windowless", o.windowless)
	return g, nil
}

// Context returns the handle passed to App hooks.
func (g *Glass) Context() *Context { return g.ctx }

// Run calls Start, then polls src and ticks until ctx is cancelled, src
// is exhausted, Context.Exit is called, or the last window closed. End
// runs and Glass is closed before Run returns. Cancellation is not an
// error; a lost device is.
func (g *Glass) Run(ctx context.Context, src EventSource) error {
	if g.closed {
		return ErrClosed
	}
	defer g.Close()
	defer g.app.End(g.ctx)

	if err := g.app.Start(g.ctx); err != nil {
		return fmt.Errorf("glass: start: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		exhausted := false
		if src != nil {
			events, ok := src.PollEvents()
			for _, ev := range events {
				g.app.Input(g.ctx, ev)
				if err := g.HandleEvent(ev); err != nil {
					slogger().Warn("glass: event", "window", ev.Window(), "error", err)
				}
			}
			exhausted = !ok
		}
		if g.exit {
			return nil
		}

		g.app.Update(g.ctx)
		if err := g.Tick(); err != nil {
			return err
		}
		g.app.EndOfFrame(g.ctx)

		if exhausted || g.exit {
			return nil
		}
		if g.opened && len(g.windows) == 0 && !g.opts.windowless {
			slogger().Info("glass: last window closed")
			return nil
		}
	}
}

// HandleEvent applies a window event. Other events are ignored. Run
// calls it for every polled event.
func (g *Glass) HandleEvent(ev Event) error {
	if g.closed {
		return ErrClosed
	}
	switch e := ev.(type) {
	case WindowOpened:
		return g.windowOpened(e)
	case WindowResized:
		w, ok := g.windows[e.ID]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownWindow, e.ID)
		}
		if w.surface == nil {
			w.cfg.Size = e.Size
			return nil
		}
		return w.surface.Resize(e.Size)
	case WindowClosed:
		return g.closeWindow(e.ID)
	case WindowFocused:
		if w, ok := g.windows[e.ID]; ok {
			w.focused = e.Focused
		}
	case KeyEvent:
		w, ok := g.windows[e.ID]
		if ok && w.cfg.ExitOnEsc && w.focused && e.Key == KeyEscape && e.Pressed && !e.Synthetic {
			slogger().Debug("glass: escape pressed", "window", e.ID)
			return g.closeWindow(e.ID)
		}
	}
	return nil
}

func (g *Glass) windowOpened(e WindowOpened) error {
	w, ok := g.windows[e.ID]
	if !ok {
		id := e.ID
		if id == 0 {
			id = g.allocID()
		} else if id > g.nextID {
			g.nextID = id
		}
		w = g.addWindow(id, g.opts.window)
	}
	if w.surface != nil {
		return fmt.Errorf("glass: window %d already bound", w.id)
	}
	if !e.Size.Zero() {
		w.cfg.Size = e.Size
	}
	if err := g.bind(w, e.Handle, e.Presenter); err != nil {
		g.forget(w)
		return err
	}
	return nil
}

func (g *Glass) allocID() WindowID {
	g.nextID++
	return g.nextID
}

func (g *Glass) addWindow(id WindowID, cfg WindowConfig) *window {
	w := &window{
		id:      id,
		cfg:     cfg,
		post:    g.opts.post,
		focused: true,
	}
	g.mu.Lock()
	g.windows[id] = w
	g.order = append(g.order, id)
	g.mu.Unlock()
	return w
}

func (g *Glass) forget(w *window) {
	g.mu.Lock()
	delete(g.windows, w.id)
	g.order = slices.DeleteFunc(g.order, func(id WindowID) bool { return id == w.id })
	g.mu.Unlock()
}

// enqueue queues req while id is open. Holding the read lock across
// the registry call orders it before or after the teardown that
// forgets the window and then drains its queue.
func (g *Glass) enqueue(id WindowID, req pipeline.Request) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.windows[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWindow, id)
	}
	return g.reg.Enqueue(uint64(id), req)
}

// bind creates the surface, post-process chain and push ring of w.
func (g *Glass) bind(w *window, handle surface.Handle, p surface.Presenter) error {
	var (
		ws  *surface.WindowSurface
		err error
	)
	switch {
	case p != nil:
		ws, err = surface.BindPresenter(g.dev, p, w.id, handle, w.cfg.Size, w.cfg.surfaceOptions()...)
	case g.opts.presenters != nil:
		ws, err = surface.Bind(g.dev, g.opts.presenters, w.id, handle, w.cfg.Size, w.cfg.surfaceOptions()...)
	default:
		err = fmt.Errorf("%w: %d", ErrNoPresenter, w.id)
	}
	if err != nil {
		return err
	}
	w.surface = ws
	w.chain = g.post.NewChain(g.alloc, w.label())
	w.ring = g.reg.NewPushRing(w.label())
	g.opened = true
	slogger().Info("glass: window opened", "window", w.id, "title", w.cfg.Title, "size", ws.Size().String())
	return nil
}

// closeWindow tears w down now, or at the next phase boundary while it
// is recording.
func (g *Glass) closeWindow(id WindowID) error {
	w, ok := g.windows[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWindow, id)
	}
	if w.state == StateRecording {
		w.closeRequested = true
		return nil
	}
	g.teardown(w)
	return nil
}

func (g *Glass) teardown(w *window) {
	if w.state == StateClosed {
		return
	}
	if w.inflight != nil {
		if err := g.dev.WaitFor(w.lastSubmission, device.DefaultWaitTimeout); err != nil {
			slogger().Warn("glass: wait before close", "window", w.id, "error", err)
		}
		g.dev.Device().FreeCommandBuffer(w.inflight)
		w.inflight = nil
	}
	if w.chain != nil {
		w.chain.Release()
	}
	if w.ring != nil {
		w.ring.Destroy()
	}
	if w.surface != nil {
		w.surface.Release()
	}
	g.forget(w)
	g.reg.Drain(uint64(w.id))
	w.state = StateClosed
	slogger().Info("glass: window closed", "window", w.id, "frames", w.frames)
}

// Tick renders one frame for every bound window in the order the
// windows were opened. Failures are contained to their window; only a
// lost device is returned.
func (g *Glass) Tick() error {
	if g.closed {
		return ErrClosed
	}
	g.frame++
	for _, id := range slices.Clone(g.order) {
		w, ok := g.windows[id]
		if !ok {
			continue
		}
		if err := g.renderWindow(w); err != nil {
			return err
		}
	}
	return nil
}

// errWindowLost reports a surface that stayed lost after a reconfigure.
var errWindowLost = errors.New("glass: surface lost twice")

func (g *Glass) renderWindow(w *window) error {
	log := slogger().With("window", w.id, "frame", g.frame)
	if w.closeRequested {
		g.teardown(w)
		return nil
	}

	// Queued requests belong to this tick; a skipped frame drops them.
	compute, render := g.reg.Drain(uint64(w.id))
	switch {
	case w.surface == nil:
		return nil
	case w.surface.Suspended():
		log.Debug("glass: window suspended", "dropped", len(compute)+len(render))
		return nil
	}

	if err := g.dev.WaitFor(w.lastSubmission, device.DefaultWaitTimeout); err != nil {
		log.Warn("glass: previous frame still running", "error", err)
		return nil
	}
	if w.inflight != nil {
		g.dev.Device().FreeCommandBuffer(w.inflight)
		w.inflight = nil
	}
	w.ring.Reset()

	w.state = StateAcquiring
	tok, err := g.acquire(w)
	if err != nil {
		w.state = StateIdle
		switch {
		case errors.Is(err, errWindowLost):
			log.Error("glass: tearing window down", "error", err)
			g.teardown(w)
		case errors.Is(err, surface.ErrTimeout), errors.Is(err, surface.ErrSuspended):
			log.Debug("glass: frame skipped", "error", err)
		default:
			log.Warn("glass: acquire failed", "error", err)
		}
		return nil
	}

	size := w.surface.Size()
	if err := w.chain.Ensure(size.Width, size.Height, w.post); err != nil {
		log.Warn("glass: frame skipped", "error", err)
		tok.Discard()
		w.state = StateIdle
		return nil
	}

	w.state = StateRecording
	rec, err := pipeline.NewRecorder(g.dev.Device(), w.ring, w.label())
	if err != nil {
		log.Warn("glass: frame skipped", "error", err)
		tok.Discard()
		w.state = StateIdle
		return nil
	}
	cancel := func(reason string, err error) {
		rec.Discard()
		tok.Discard()
		w.state = StateIdle
		if err != nil {
			log.Warn(reason, "error", err)
		}
	}

	if err := g.recordQueued(w, rec, compute, render); err != nil {
		cancel("glass: scene pass", err)
		return nil
	}

	rd := &RenderData{
		window: w.id,
		frame:  g.frame,
		hdr:    w.chain.HDR(),
		swap:   tok.Target(),
		rec:    rec,
		reg:    g.reg,
	}
	err = g.app.Render(g.ctx, rd)
	rd.expire()
	if w.closeRequested {
		cancel("", nil)
		g.teardown(w)
		return nil
	}
	if err != nil {
		cancel("glass: render", err)
		return nil
	}

	if err := w.chain.Run(rec, tok.Target(), w.post); err != nil {
		cancel("glass: post-process", err)
		return nil
	}
	cb, err := rec.Finish()
	if err != nil {
		cancel("glass: finish", err)
		return nil
	}

	index, err := g.dev.Submit([]hal.CommandBuffer{cb})
	if err != nil {
		g.dev.Device().FreeCommandBuffer(cb)
		tok.Discard()
		w.state = StateIdle
		if errors.Is(err, device.ErrDeviceLost) {
			return err
		}
		log.Warn("glass: submit", "error", err)
		return nil
	}
	w.state = StateSubmitted
	w.lastSubmission = index
	w.inflight = cb

	if err := tok.Present(); err != nil {
		// A lost surface is reconfigured by the next acquire.
		log.Warn("glass: present", "error", err)
	} else {
		w.frames++
	}
	w.state = StateIdle
	g.app.AfterRender(g.ctx, w.id)
	return nil
}

// acquire gets the next image, reconfiguring once on a lost surface.
func (g *Glass) acquire(w *window) (*surface.FrameToken, error) {
	tok, err := w.surface.Acquire()
	if err == nil || !surface.IsLost(err) {
		return tok, err
	}
	slogger().Debug("glass: surface lost, reconfiguring", "window", w.id, "error", err)
	if rerr := w.surface.Reconfigure(); rerr != nil {
		return nil, fmt.Errorf("%w: %w", errWindowLost, rerr)
	}
	tok, err = w.surface.Acquire()
	if err != nil && surface.IsLost(err) {
		return nil, fmt.Errorf("%w: %w", errWindowLost, err)
	}
	return tok, err
}

// recordQueued records the window's queued compute requests in one
// compute pass and its queued render requests in the scene pass, which
// clears the HDR target. Rejected requests are logged and skipped.
func (g *Glass) recordQueued(w *window, rec *pipeline.Recorder, compute, render []pipeline.Request) error {
	if len(compute) > 0 {
		if err := rec.BeginComputePass("compute"); err != nil {
			return err
		}
		g.dispatch(w, rec, compute)
		if err := rec.End(); err != nil {
			return err
		}
	}

	err := rec.BeginRenderPass(pipeline.RenderPassDesc{
		Label: "scene",
		Color: []pipeline.ColorAttachment{{
			Target: w.chain.HDR(),
			Load:   gputypes.LoadOpClear,
			Clear:  w.cfg.ClearColor,
		}},
	})
	if err != nil {
		return err
	}
	g.dispatch(w, rec, render)
	return rec.End()
}

func (g *Glass) dispatch(w *window, rec *pipeline.Recorder, reqs []pipeline.Request) {
	for _, r := range reqs {
		if err := g.reg.BindAndDispatch(rec, r.Pipeline, r.Push, r.BindGroups, r.Work); err != nil {
			slogger().Error("glass: request rejected", "window", w.id, "pipeline", r.Pipeline, "error", err)
		}
	}
}

// Close tears down every window and releases the post-process
// pipelines, the registry, the target allocator and, unless supplied
// with WithDeviceContext, the device. Close is idempotent.
func (g *Glass) Close() {
	if g.closed {
		return
	}
	for _, id := range slices.Clone(g.order) {
		if w, ok := g.windows[id]; ok {
			g.teardown(w)
		}
	}
	if g.dev != nil {
		if err := g.dev.WaitIdle(device.DefaultWaitTimeout); err != nil {
			slogger().Warn("glass: wait idle", "error", err)
		}
	}
	g.release()
	g.closed = true
}

func (g *Glass) release() {
	if g.post != nil {
		g.post.Close()
	}
	if g.alloc != nil {
		g.alloc.Close()
	}
	if g.reg != nil {
		g.reg.Close()
	}
	if g.ownsDevice && g.dev != nil {
		g.dev.Close()
	}
}
