package work

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/util/log"
	"github.com/google/uuid"
)

// Event types
const (
	EventScheduled = "work_scheduled"
	EventCancelled = "work_cancelled"
	EventSucceeded = "work_succeeded"
	EventRetry     = "work_retry"
	EventFailed    = "work_failed"
)

// Event reports a state change of a request.
type Event struct {
	Type    string  `json:"type"`
	Request Request `json:"request"`
	Error   string  `json:"error,omitempty"`
}

// Worker executes requests of one kind.
type Worker interface {
	DoWork(ctx context.Context, input map[string]string) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, input map[string]string) error

// DoWork calls f(ctx, input).
func (f WorkerFunc) DoWork(ctx context.Context, input map[string]string) error {
	return f(ctx, input)
}

// Persistence stores requests across restarts. *store.WorkRequestRepository implements it.
type Persistence interface {
	Save(ctx context.Context, req *store.WorkRequest) error
	Delete(ctx context.Context, id string) error
	DeleteByName(ctx context.Context, name string) error
	DeleteByTag(ctx context.Context, tag string) (int64, error)
	Pending(ctx context.Context) ([]store.WorkRequest, error)
}

// Options configures a Manager.
type Options struct {
	// PollInterval delays work whose network constraint is unmet. A persisted
	// manager also rereads the store at least this often, so schedule edits
	// made by other processes sharing the database take effect.
	PollInterval time.Duration
	// NetworkCheckURL is probed with HEAD for RequiresNetwork work. Empty disables the check.
	NetworkCheckURL string
	HTTPClient      *http.Client
	// NetworkCheck overrides the HEAD probe.
	NetworkCheck func(ctx context.Context) bool
	MaxAttempts  int
	BaseBackoff  time.Duration
	OnEvent      func(Event)
}

type runningJob struct {
	id     string
	tag    string
	cancel context.CancelFunc
}

// Manager runs delayed one-shot work.
type Manager struct {
	opts    Options
	persist Persistence

	// storeMu orders every change to persisted rows against sync, so a sync
	// never observes the store and the maps halfway through an update.
	storeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]Request // by unique name
	running map[string]*runningJob
	workers map[string]Worker

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager. persist may be nil for in-memory work only.
func NewManager(persist Persistence, opts Options) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Manager{
		opts:    opts,
		persist: persist,
		pending: make(map[string]Request),
		running: make(map[string]*runningJob),
		workers: make(map[string]Worker),
		wake:    make(chan struct{}, 1),
	}
}

// RegisterWorker binds a worker to a request kind.
func (m *Manager) RegisterWorker(kind string, w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[kind] = w
}

// Start loads persisted work and runs the scheduling loop until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return errors.New("work manager already started")
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	if err := m.Load(ctx); err != nil {
		m.mu.Lock()
		m.cancel()
		m.cancel = nil
		m.mu.Unlock()
		return err
	}

	m.wg.Add(1)
	go m.loop()
	return nil
}

// Load reads persisted work into the pending set without running it. Start
// calls it; one-shot tools that only inspect or edit the schedule call it alone.
func (m *Manager) Load(ctx context.Context) error {
	if m.persist == nil {
		return nil
	}
	reqs, err := m.persist.Pending(ctx)
	if err != nil {
		return fmt.Errorf("loading persisted work: %w", err)
	}
	m.mu.Lock()
	for _, r := range reqs {
		if _, ok := m.pending[r.Name]; !ok {
			m.pending[r.Name] = fromModel(r)
		}
	}
	m.mu.Unlock()
	log.Printf("Loaded %d persisted work requests", len(reqs))
	return nil
}

// Stop halts the loop and cancels running work. Pending work stays persisted.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.cancel = nil
	m.mu.Unlock()
	log.Print("Work manager stopped.")
}

// Enqueue schedules req. A missing ID is generated and a zero RunAt means now.
func (m *Manager) Enqueue(ctx context.Context, req Request, policy Policy) (Request, error) {
	if req.Name == "" || req.Kind == "" {
		return Request{}, errors.New("work request needs a name and a kind")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RunAt.IsZero() {
		req.RunAt = time.Now()
	}

	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	m.mu.Lock()
	if policy == ExistingWorkKeep {
		if existing, ok := m.pending[req.Name]; ok {
			m.mu.Unlock()
			return existing, nil
		}
		if _, ok := m.running[req.Name]; ok {
			m.mu.Unlock()
			return req, nil
		}
	}
	replaced, hadPending := m.pending[req.Name]
	if job, ok := m.running[req.Name]; ok {
		job.cancel()
		delete(m.running, req.Name)
	}
	m.pending[req.Name] = req
	m.mu.Unlock()

	if m.persist != nil {
		if err := m.persist.DeleteByName(ctx, req.Name); err != nil {
			log.Printf("Failed to drop replaced work %s: %v", req.Name, err)
		}
		if err := m.persist.Save(ctx, req.toModel()); err != nil {
			m.mu.Lock()
			delete(m.pending, req.Name)
			m.mu.Unlock()
			return Request{}, err
		}
	}

	if hadPending {
		m.emit(Event{Type: EventCancelled, Request: replaced})
	}
	log.Debugf("Enqueued work %s (%s) to run at %s", req.Name, req.Kind, req.RunAt.Format(time.RFC3339))
	m.emit(Event{Type: EventScheduled, Request: req})
	m.poke()
	return req, nil
}

// CancelByTag cancels every pending and running request carrying tag.
func (m *Manager) CancelByTag(ctx context.Context, tag string) int {
	m.storeMu.Lock()
	m.mu.Lock()
	var cancelled []Request
	for name, r := range m.pending {
		if r.Tag == tag {
			cancelled = append(cancelled, r)
			delete(m.pending, name)
		}
	}
	for name, job := range m.running {
		if job.tag == tag {
			job.cancel()
			delete(m.running, name)
		}
	}
	m.mu.Unlock()

	if m.persist != nil {
		if _, err := m.persist.DeleteByTag(ctx, tag); err != nil {
			log.Printf("Failed to delete persisted work tagged %s: %v", tag, err)
		}
	}
	m.storeMu.Unlock()

	sortRequests(cancelled)
	for _, r := range cancelled {
		m.emit(Event{Type: EventCancelled, Request: r})
	}
	log.Debugf("Cancelled %d works tagged %s", len(cancelled), tag)
	m.poke()
	return len(cancelled)
}

// CancelByName cancels the request with the given unique name.
func (m *Manager) CancelByName(ctx context.Context, name string) bool {
	m.storeMu.Lock()
	m.mu.Lock()
	r, ok := m.pending[name]
	delete(m.pending, name)
	if job, running := m.running[name]; running {
		job.cancel()
		delete(m.running, name)
		ok = true
	}
	m.mu.Unlock()

	if m.persist != nil {
		if err := m.persist.DeleteByName(ctx, name); err != nil {
			log.Printf("Failed to delete persisted work %s: %v", name, err)
		}
	}
	m.storeMu.Unlock()
	if ok {
		m.emit(Event{Type: EventCancelled, Request: r})
		m.poke()
	}
	return ok
}

// Pending returns the queued requests ordered by due time.
func (m *Manager) Pending() []Request {
	return m.filter(func(Request) bool { return true })
}

// ByTag returns the queued requests carrying tag ordered by due time.
func (m *Manager) ByTag(tag string) []Request {
	return m.filter(func(r Request) bool { return r.Tag == tag })
}

func (m *Manager) filter(keep func(Request) bool) []Request {
	m.mu.Lock()
	out := make([]Request, 0, len(m.pending))
	for _, r := range m.pending {
		if keep(r) {
			out = append(out, r)
		}
	}
	m.mu.Unlock()
	sortRequests(out)
	return out
}

func sortRequests(rs []Request) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].RunAt.Equal(rs[j].RunAt) {
			return rs[i].Name < rs[j].Name
		}
		return rs[i].RunAt.Before(rs[j].RunAt)
	})
}

func (m *Manager) poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) emit(e Event) {
	if m.opts.OnEvent != nil {
		m.opts.OnEvent(e)
	}
}

func (m *Manager) loop() {
	defer m.wg.Done()
	log.Print("Work manager started.")

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		m.sync(m.ctx)
		m.runDue()

		wait := time.Hour
		if next, ok := m.nextRunAt(); ok {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		}
		if m.persist != nil && wait > m.opts.PollInterval {
			wait = m.opts.PollInterval
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-m.ctx.Done():
			return
		case <-m.wake:
		case <-timer.C:
		}
	}
}

// sync makes the in-memory schedule match the store. Rows deleted elsewhere
// are dropped (and stop if running); rows added or replaced elsewhere are
// picked up. On a read error the current schedule is kept.
func (m *Manager) sync(ctx context.Context) {
	if m.persist == nil {
		return
	}
	m.storeMu.Lock()
	reqs, err := m.persist.Pending(ctx)
	if err != nil {
		m.storeMu.Unlock()
		if ctx.Err() == nil {
			log.Printf("Failed to reread persisted work: %v", err)
		}
		return
	}
	stored := make(map[string]Request, len(reqs))
	for _, r := range reqs {
		stored[r.Name] = fromModel(r)
	}

	var dropped, added []Request
	m.mu.Lock()
	for name, r := range m.pending {
		if s, ok := stored[name]; !ok || s.ID != r.ID {
			dropped = append(dropped, r)
			delete(m.pending, name)
		}
	}
	for name, job := range m.running {
		if s, ok := stored[name]; !ok || s.ID != job.id {
			job.cancel()
			delete(m.running, name)
		}
	}
	for name, r := range stored {
		if _, ok := m.running[name]; ok {
			continue
		}
		if _, ok := m.pending[name]; !ok {
			m.pending[name] = r
			added = append(added, r)
		}
	}
	m.mu.Unlock()
	m.storeMu.Unlock()

	sortRequests(dropped)
	for _, r := range dropped {
		m.emit(Event{Type: EventCancelled, Request: r})
	}
	sortRequests(added)
	for _, r := range added {
		m.emit(Event{Type: EventScheduled, Request: r})
	}
	if len(dropped)+len(added) > 0 {
		log.Debugf("Synced work schedule: %d dropped, %d picked up", len(dropped), len(added))
	}
}

func (m *Manager) nextRunAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next time.Time
	found := false
	for _, r := range m.pending {
		if !found || r.RunAt.Before(next) {
			next = r.RunAt
			found = true
		}
	}
	return next, found
}

func (m *Manager) runDue() {
	now := time.Now()
	m.mu.Lock()
	var due []Request
	for name, r := range m.pending {
		if !r.RunAt.After(now) {
			due = append(due, r)
			delete(m.pending, name)
		}
	}
	for _, r := range due {
		ctx, cancel := context.WithCancel(m.ctx)
		job := &runningJob{id: r.ID, tag: r.Tag, cancel: cancel}
		m.running[r.Name] = job
		m.wg.Add(1)
		go m.execute(ctx, r, job)
	}
	m.mu.Unlock()
}

func (m *Manager) execute(ctx context.Context, req Request, job *runningJob) {
	defer m.wg.Done()
	defer job.cancel()

	if req.RequiresNetwork && !m.networkAvailable(ctx) {
		log.Printf("Work %s waiting for network", req.Name)
		req.RunAt = time.Now().Add(m.opts.PollInterval)
		m.requeue(req, job)
		return
	}

	m.mu.Lock()
	worker, ok := m.workers[req.Kind]
	m.mu.Unlock()

	var err error
	if !ok {
		err = Permanent(fmt.Errorf("no worker registered for %q", req.Kind))
	} else {
		err = worker.DoWork(ctx, req.Input)
	}

	if ctx.Err() != nil {
		if m.wasCancelled(req, job) {
			// Cancelled or replaced while running
			return
		}
		if m.ctx.Err() != nil {
			// Shutting down; run again after the next Start
			m.requeue(req, job)
			return
		}
	}

	if err == nil {
		log.Printf("Work %s finished", req.Name)
		m.finish(req, job)
		m.emit(Event{Type: EventSucceeded, Request: req})
		return
	}

	req.Attempts++
	if isPermanent(err) || req.Attempts >= m.opts.MaxAttempts {
		log.Printf("Work %s failed after %d attempts: %v", req.Name, req.Attempts, err)
		m.finish(req, job)
		m.emit(Event{Type: EventFailed, Request: req, Error: err.Error()})
		return
	}

	backoff := m.opts.BaseBackoff << (req.Attempts - 1)
	req.RunAt = time.Now().Add(backoff)
	log.Printf("Work %s failed (attempt %d), retrying in %s: %v", req.Name, req.Attempts, backoff, err)
	if m.requeue(req, job) {
		m.emit(Event{Type: EventRetry, Request: req, Error: err.Error()})
	}
}

// wasCancelled reports whether job no longer owns its name.
func (m *Manager) wasCancelled(req Request, job *runningJob) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.running[req.Name]
	return !ok || current != job
}

// requeue puts req back unless it was cancelled or replaced while running.
func (m *Manager) requeue(req Request, job *runningJob) bool {
	m.storeMu.Lock()
	m.mu.Lock()
	current, ok := m.running[req.Name]
	if !ok || current != job {
		m.mu.Unlock()
		m.storeMu.Unlock()
		return false
	}
	delete(m.running, req.Name)
	if _, replaced := m.pending[req.Name]; replaced {
		m.mu.Unlock()
		m.storeMu.Unlock()
		return false
	}
	m.pending[req.Name] = req
	m.mu.Unlock()

	if m.persist != nil {
		if err := m.persist.Save(context.Background(), req.toModel()); err != nil {
			log.Printf("Failed to persist work %s: %v", req.Name, err)
		}
	}
	m.storeMu.Unlock()
	m.poke()
	return true
}

func (m *Manager) finish(req Request, job *runningJob) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	m.mu.Lock()
	if current, ok := m.running[req.Name]; ok && current == job {
		delete(m.running, req.Name)
	}
	m.mu.Unlock()

	if m.persist != nil {
		if err := m.persist.Delete(context.Background(), req.ID); err != nil {
			log.Printf("Failed to delete finished work %s: %v", req.Name, err)
		}
	}
}

// networkAvailable probes the connectivity check URL.
func (m *Manager) networkAvailable(ctx context.Context) bool {
	if m.opts.NetworkCheck != nil {
		return m.opts.NetworkCheck(ctx)
	}
	if m.opts.NetworkCheckURL == "" {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.opts.NetworkCheckURL, nil)
	if err != nil {
		log.Printf("networkAvailable: Error creating request: %v", err)
		return false
	}
	resp, err := m.opts.HTTPClient.Do(req)
	if err != nil {
		log.Printf("networkAvailable: Network check failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true
	}
	log.Printf("networkAvailable: Network check returned non-success status: %d", resp.StatusCode)
	return false
}
