package publicflow

import (
	"context"
	"sync"
	"time"

	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
)

// Autosaver debounces draft writes per form and respondent. Only the latest
// values handed in during the debounce window are written.
type Autosaver struct {
	store    DraftStore
	debounce time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[DraftKey]*pendingDraft
	// inflight holds the latest write started for a key. It is closed once
	// that write and every earlier one for the key have finished.
	inflight map[DraftKey]chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

type pendingDraft struct {
	draft Draft
	timer *time.Timer
}

func NewAutosaver(store DraftStore, debounce time.Duration) *Autosaver {
	return &Autosaver{
		store:    store,
		debounce: debounce,
		now:      time.Now,
		pending:  make(map[DraftKey]*pendingDraft),
		inflight: make(map[DraftKey]chan struct{}),
	}
}

// Save schedules values to be written after the debounce window. startTime
// is the respondent session start and is kept on the stored draft.
func (a *Autosaver) Save(key DraftKey, values types.FieldValues, startTime time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	draft := Draft{
		FormID:       key.FormID,
		RespondentID: key.RespondentID,
		Values:       values.Copy(),
		StartTime:    startTime,
	}
	if p, ok := a.pending[key]; ok {
		p.draft = draft
		// A timer that already fired is waiting on the lock and will write
		// the replaced draft.
		if p.timer.Stop() {
			p.timer.Reset(a.debounce)
		}
		return
	}

	p := &pendingDraft{draft: draft}
	a.wg.Add(1)
	p.timer = time.AfterFunc(a.debounce, func() { a.fire(key) })
	a.pending[key] = p
}

// Cancel drops a pending write for key and waits for a write already in
// progress, so a draft deleted after Cancel returns stays deleted. It returns
// ctx's error if the wait is cut short.
func (a *Autosaver) Cancel(ctx context.Context, key DraftKey) error {
	a.mu.Lock()
	if p, ok := a.pending[key]; ok {
		delete(a.pending, key)
		if p.timer.Stop() {
			a.wg.Done()
		}
	}
	writing := a.inflight[key]
	a.mu.Unlock()

	if writing == nil {
		return nil
	}
	select {
	case <-writing:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the unwritten draft for key, if any.
func (a *Autosaver) Pending(key DraftKey) (Draft, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pending[key]
	if !ok {
		return Draft{}, false
	}
	d := p.draft
	d.Values = d.Values.Copy()
	return d, true
}

func (a *Autosaver) fire(key DraftKey) {
	defer a.wg.Done()
	a.mu.Lock()
	p, ok := a.pending[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	draft := p.draft
	previous := a.inflight[key]
	done := make(chan struct{})
	a.inflight[key] = done
	a.mu.Unlock()

	// Writes for one key land in the order they fired.
	if previous != nil {
		<-previous
	}
	a.write(context.Background(), draft)

	a.mu.Lock()
	if a.inflight[key] == done {
		delete(a.inflight, key)
	}
	a.mu.Unlock()
	close(done)
}

func (a *Autosaver) write(ctx context.Context, draft Draft) {
	draft.LastSaved = a.now()
	if err := a.store.Save(ctx, draft); err != nil {
		logger.GetLogger().Warnw("Failed to autosave draft",
			"formID", draft.FormID, "respondentID", draft.RespondentID, "error", err)
	}
}

// Shutdown writes every pending draft immediately and stops accepting saves.
func (a *Autosaver) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	var flush []Draft
	for key, p := range a.pending {
		if p.timer.Stop() {
			flush = append(flush, p.draft)
			delete(a.pending, key)
			a.wg.Done()
		}
	}
	a.mu.Unlock()

	for _, d := range flush {
		a.write(ctx, d)
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
