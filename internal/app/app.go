// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app implements the interactive overview: a single-threaded
// cooperative event loop that renders the session table, previews the
// selected session's pane, and serializes mutating operations through a
// single-slot pending-action queue.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/wingedpig/agentsbox/internal/async"
	"github.com/wingedpig/agentsbox/internal/attach"
	"github.com/wingedpig/agentsbox/internal/audit"
	"github.com/wingedpig/agentsbox/internal/config"
	"github.com/wingedpig/agentsbox/internal/events"
	"github.com/wingedpig/agentsbox/internal/mux"
	"github.com/wingedpig/agentsbox/internal/session"
	"github.com/wingedpig/agentsbox/internal/supervisor"
)

const (
	frameInterval  = 100 * time.Millisecond
	healthInterval = 750 * time.Millisecond
	previewLines   = 12
)

// sessionView is one row of the overview: the persisted record plus its
// most recently observed health and pane preview.
type sessionView struct {
	record  session.Record
	health  supervisor.Health
	preview string
}

// App is the interactive overview's state container.
type App struct {
	cfg      *config.Config
	store    *session.Store
	sup      *supervisor.Supervisor
	mux      *mux.Adapter
	attacher *attach.Controller
	bus      events.EventBus
	log      *audit.Log

	queue  *async.Queue
	result <-chan async.Result

	sessions   []sessionView
	selected   int
	status     string
	lastEvent  string          // most recent session.* event seen on the bus
	confirming *session.Record // pending delete confirmation, nil when none

	lastHealth time.Time
	out        *os.File
	quit       bool
}

// Options wires the already-constructed core components into the overview.
type Options struct {
	Config     *config.Config
	Store      *session.Store
	Supervisor *supervisor.Supervisor
	Mux        *mux.Adapter
	Bus        events.EventBus
	Audit      *audit.Log
}

// New returns an App ready to Run.
func New(opts Options) *App {
	return &App{
		cfg:   opts.Config,
		store: opts.Store,
		sup:   opts.Supervisor,
		mux:   opts.Mux,
		bus:   opts.Bus,
		log:   opts.Audit,
		queue: async.New(),
		out:   os.Stdout,
	}
}

// Run enters the event loop and blocks until the user quits or ctx is
// canceled. It owns the terminal for its whole duration: raw mode plus
// alternate screen on entry, both restored on exit.
func (a *App) Run(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal; use the non-interactive subcommands instead")
	}

	cooked, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer term.Restore(fd, cooked)

	a.attacher = attach.New(a.mux, cooked)

	fmt.Fprint(a.out, "\x1b[?1049h\x1b[?25l\x1b[2J\x1b[H")
	defer fmt.Fprint(a.out, "\x1b[?1049l\x1b[?25h")

	// The supervisor publishes every lifecycle mutation; mirror the most
	// recent one in the footer. Publishes happen from queue.Tick on this
	// same goroutine, so the handler may touch App state directly.
	if a.bus != nil {
		subID, subErr := a.bus.Subscribe("session.*", func(_ context.Context, event events.Event) error {
			a.lastEvent = event.Type
			if event.Scope != "" {
				a.lastEvent += " " + event.Scope
			}
			return nil
		})
		if subErr == nil {
			defer a.bus.Unsubscribe(subID)
		}
	}

	keys := make(chan key, 16)
	go readKeys(os.Stdin, keys)

	if err := a.refreshSessions(ctx); err != nil {
		a.status = err.Error()
	}
	a.refreshHealth(ctx)
	a.render()

	frame := time.NewTicker(frameInterval)
	defer frame.Stop()

	for !a.quit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case k := <-keys:
			a.handleKey(ctx, k)
		case <-frame.C:
		}

		// Between frames: run at most one pending async action, then
		// collect its result if it finished.
		a.queue.Tick(ctx)
		a.collectResult()

		if time.Since(a.lastHealth) >= healthInterval {
			a.refreshHealth(ctx)
			a.lastHealth = time.Now()
		}
		a.render()
	}
	return nil
}

// refreshSessions reloads the record list from the store, preserving the
// selection by mux name where possible.
func (a *App) refreshSessions(ctx context.Context) error {
	records, err := a.store.List(session.Filter{})
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	var selectedMux string
	if a.selected < len(a.sessions) {
		selectedMux = a.sessions[a.selected].record.MuxName
	}

	views := make([]sessionView, len(records))
	for i, r := range records {
		views[i] = sessionView{record: r, health: supervisor.HealthStopped}
		if r.MuxName == selectedMux {
			a.selected = i
		}
	}
	a.sessions = views
	if a.selected >= len(a.sessions) {
		a.selected = 0
	}
	return nil
}

// refreshHealth recomputes health for every session and the preview for
// the selected one. Captures are snapshots: a row may briefly show state
// from before a kill, and the next tick corrects it.
func (a *App) refreshHealth(ctx context.Context) {
	for i := range a.sessions {
		h, err := a.sup.Health(ctx, a.sessions[i].record)
		if err != nil {
			h = supervisor.HealthStopped
		}
		a.sessions[i].health = h
	}
	if a.selected < len(a.sessions) {
		v := &a.sessions[a.selected]
		if v.health != supervisor.HealthStopped {
			text, err := a.mux.Capture(ctx, v.record.MuxName, mux.CaptureOptions{})
			if err == nil {
				v.preview = text
			}
		} else {
			v.preview = ""
		}
	}
}

func (a *App) handleKey(ctx context.Context, k key) {
	if a.confirming != nil {
		a.handleConfirmKey(ctx, k)
		return
	}

	switch {
	case k.rune == 'q' || k.ctrl == 'c':
		a.quit = true
	case k.rune == 'j' || k.special == keyDown:
		if a.selected < len(a.sessions)-1 {
			a.selected++
		}
	case k.rune == 'k' || k.special == keyUp:
		if a.selected > 0 {
			a.selected--
		}
	case k.rune == 'g':
		if err := a.refreshSessions(ctx); err != nil {
			a.status = err.Error()
		} else {
			a.status = "refreshed"
		}
		a.refreshHealth(ctx)
	case k.rune == 'a' || k.special == keyEnter:
		a.attachSelected(ctx)
	case k.rune == 'd':
		if v, ok := a.selectedView(); ok {
			r := v.record
			a.confirming = &r
		}
	case k.rune == 'r':
		a.restartSelected()
	case k.rune == 'c':
		a.enqueue("cleaning up orphans", func(ctx context.Context) (interface{}, error) {
			killed, err := a.sup.CleanupOrphans(ctx)
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("killed %d orphaned mux sessions", len(killed)), nil
		})
	}
}

// handleConfirmKey resolves the pending delete confirmation: y deletes, f
// force-deletes (a dirty worktree is discarded), anything else cancels.
func (a *App) handleConfirmKey(ctx context.Context, k key) {
	record := *a.confirming
	a.confirming = nil

	force := false
	switch k.rune {
	case 'f':
		force = true
	case 'y':
	default:
		a.status = "delete canceled"
		return
	}

	a.enqueue("deleting "+record.WorkspaceName, func(ctx context.Context) (interface{}, error) {
		if err := a.sup.Delete(ctx, record.ID.String(), force); err != nil {
			return nil, err
		}
		return "deleted " + record.WorkspaceName, nil
	})
}

func (a *App) selectedView() (sessionView, bool) {
	if a.selected >= len(a.sessions) {
		return sessionView{}, false
	}
	return a.sessions[a.selected], true
}

// attachSelected runs synchronously on the loop: the attach controller
// owns the terminal until the user detaches, so there is nothing to
// interleave with.
func (a *App) attachSelected(ctx context.Context) {
	v, ok := a.selectedView()
	if !ok {
		return
	}
	if v.health == supervisor.HealthStopped {
		a.status = "session is stopped; nothing to attach to"
		return
	}
	if err := a.attacher.Attach(ctx, v.record.MuxName); err != nil {
		a.status = "attach failed: " + err.Error()
		a.auditAttach(v.record, audit.Failed(err.Error()))
	} else {
		a.status = "detached from " + v.record.WorkspaceName
		a.auditAttach(v.record, audit.Success())
		if a.bus != nil {
			id := v.record.ID
			_ = a.bus.Publish(ctx, events.Event{
				Type:    events.EventSessionDetached,
				Scope:   v.record.WorkspaceName,
				Payload: map[string]interface{}{"session_id": id.String()},
			})
		}
	}
	a.refreshHealth(ctx)
}

func (a *App) auditAttach(r session.Record, result audit.Result) {
	if a.log == nil {
		return
	}
	id := r.ID
	_ = a.log.Write(audit.Entry{
		Action:    audit.ActionSessionAttached,
		Result:    result,
		SessionID: &id,
		MuxName:   r.MuxName,
		Trigger:   audit.TriggerUserKeypress,
	})
}

func (a *App) restartSelected() {
	v, ok := a.selectedView()
	if !ok {
		return
	}
	record := v.record
	agent := record.Agent
	if agent == "" {
		agent = string(a.cfg.CLIProvider)
	}
	model := record.Model
	if model == "" {
		model = a.cfg.DefaultModel
	}
	command := []string{agent}
	if model != "" {
		command = append(command, "--model", model)
	}
	a.enqueue("restarting "+record.WorkspaceName, func(ctx context.Context) (interface{}, error) {
		if err := a.sup.Restart(ctx, record.ID.String(), command); err != nil {
			return nil, err
		}
		return "restarted " + record.WorkspaceName, nil
	})
}

// enqueue installs action as the single pending async action. A second
// enqueue while one is pending is refused with a status message rather
// than queued, keeping mutations strictly serialized.
func (a *App) enqueue(label string, action async.Action) {
	done, err := a.queue.Enqueue(action)
	if err != nil {
		a.status = "busy: another operation is still running"
		return
	}
	a.result = done
	a.status = label + "…"
}

// collectResult drains a completed async action's result without blocking.
func (a *App) collectResult() {
	if a.result == nil {
		return
	}
	select {
	case res, ok := <-a.result:
		a.result = nil
		if !ok {
			return
		}
		if res.Err != nil {
			a.status = res.Err.Error()
		} else if msg, isString := res.Value.(string); isString {
			a.status = msg
		}
		if err := a.refreshSessions(context.Background()); err != nil {
			a.status = err.Error()
		}
	default:
	}
}

func (a *App) render() {
	var b strings.Builder
	b.WriteString("\x1b[H")

	width := 80
	if w, _, err := term.GetSize(int(a.out.Fd())); err == nil && w > 20 {
		width = w
	}

	writeLine(&b, width, "\x1b[1magentsbox\x1b[0m  [j/k] select  [a] attach  [d] delete  [r] restart  [c] cleanup  [g] refresh  [q] quit")
	writeLine(&b, width, "")
	for _, line := range renderRows(a.sessions, a.selected, width) {
		writeLine(&b, width, line)
	}
	writeLine(&b, width, "")

	if v, ok := a.selectedView(); ok && v.preview != "" {
		writeLine(&b, width, "\x1b[2m── preview ──\x1b[0m")
		for _, line := range formatPreview(v.preview, previewLines) {
			writeLine(&b, width, line)
		}
	}

	writeLine(&b, width, "")
	if a.confirming != nil {
		writeLine(&b, width, fmt.Sprintf("\x1b[33mdelete %s? [y]es / [f]orce / any other key cancels\x1b[0m", a.confirming.WorkspaceName))
	} else {
		footer := a.status
		if a.lastEvent != "" {
			footer += "  \x1b[2m[" + a.lastEvent + "]\x1b[0m"
		}
		writeLine(&b, width, "\x1b[2m"+footer+"\x1b[0m")
	}
	b.WriteString("\x1b[J")

	fmt.Fprint(a.out, b.String())
}

// writeLine emits one terminal row: clear it, write the content, then an
// explicit CR+LF since the terminal is in raw mode.
func writeLine(b *strings.Builder, width int, s string) {
	b.WriteString("\x1b[2K")
	b.WriteString(s)
	b.WriteString("\r\n")
}

// renderRows formats the session table. Split out from render so it can
// be exercised without a terminal.
func renderRows(sessions []sessionView, selected, width int) []string {
	if len(sessions) == 0 {
		return []string{"  no sessions — create one with `agentsbox run`"}
	}
	rows := make([]string, len(sessions))
	for i, v := range sessions {
		marker := "  "
		if i == selected {
			marker = "\x1b[7m> "
		}
		id := v.record.ID.String()
		if len(id) > 8 {
			id = id[:8]
		}
		row := fmt.Sprintf("%s%-8s %-20s %-28s %-8s %s", marker, id,
			clip(v.record.WorkspaceName, 20), clip(v.record.MuxName, 28),
			v.health, v.record.CreatedAt.Local().Format("Jan 02 15:04"))
		if i == selected {
			row += "\x1b[0m"
		}
		if len(row) > width+8 { // slack for the escape codes
			row = row[:width+8]
		}
		rows[i] = row
	}
	return rows
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
