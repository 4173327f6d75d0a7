// Package memory is an in-process implementation of store.Store.
//
// Writes made inside a transaction are staged and only become visible to
// other callers on commit. Jobs are locked individually, so transactions on
// different jobs never wait on each other while two transactions touching the
// same job are serialized. Intended for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store"
)

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*txn)(nil)
)

// Store keeps all records in maps guarded by mu
type Store struct {
	mu sync.Mutex

	jobs          map[int64]*domain.Job
	transitions   []domain.TransitionRecord
	notifications map[int64]*domain.Notification
	principals    map[int64]*domain.Principal

	// locks holds one single-slot semaphore per job id
	locks map[int64]chan struct{}

	lastJobID          int64
	lastTransitionID   int64
	lastNotificationID int64
	lastPrincipalID    int64
}

// New returns an empty Store
func New() *Store {
	return &Store{
		jobs:          make(map[int64]*domain.Job),
		notifications: make(map[int64]*domain.Notification),
		principals:    make(map[int64]*domain.Principal),
		locks:         make(map[int64]chan struct{}),
	}
}

// AddPrincipal registers a principal in the directory and returns its id.
// A zero ID is assigned automatically.
func (s *Store) AddPrincipal(p domain.Principal) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		s.lastPrincipalID++
		p.ID = s.lastPrincipalID
	} else if p.ID > s.lastPrincipalID {
		s.lastPrincipalID = p.ID
	}
	cp := p
	cp.Capabilities = domain.NewCapabilitySet(p.Capabilities.List()...)
	s.principals[p.ID] = &cp
	return p.ID
}

// RemovePrincipal drops a principal from the directory
func (s *Store) RemovePrincipal(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.principals, id)
}

// Ping always succeeds
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() error { return nil }

// Jobs returns a repository whose calls each run in their own transaction
func (s *Store) Jobs() store.JobRepository { return &jobRepo{s: s} }

// Audit returns an autocommit audit log
func (s *Store) Audit() store.AuditLog { return &auditLog{s: s} }

// Notifications returns an autocommit notification sink
func (s *Store) Notifications() store.NotificationSink { return &notificationSink{s: s} }

// Directory returns the principal directory
func (s *Store) Directory() store.RecipientDirectory { return &directory{s: s} }

// WithinTx runs fn against a staged transaction
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	t := s.begin()
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domain.Internal("commit transaction", err)
	}
	t.commit()
	return nil
}

// run executes fn inside t, or inside a fresh transaction when t is nil
func (s *Store) run(ctx context.Context, t *txn, fn func(t *txn) error) error {
	if t != nil {
		return fn(t)
	}
	return s.WithinTx(ctx, func(stx store.Tx) error {
		return fn(stx.(*txn))
	})
}

func (s *Store) begin() *txn {
	return &txn{
		s:             s,
		held:          make(map[int64]chan struct{}),
		jobs:          make(map[int64]*domain.Job),
		notifications: make(map[int64]*domain.Notification),
		reads:         make(map[int64]time.Time),
	}
}

// txn stages writes until commit. A nil entry in jobs marks a deletion.
// notifications holds only those created in the transaction; read marks on
// committed notifications are kept in reads and applied conditionally.
type txn struct {
	s    *Store
	held map[int64]chan struct{}

	jobs          map[int64]*domain.Job
	jobOrder      []int64
	transitions   []domain.TransitionRecord
	notifications map[int64]*domain.Notification
	reads         map[int64]time.Time
}

func (t *txn) Jobs() store.JobRepository             { return &jobRepo{s: t.s, t: t} }
func (t *txn) Audit() store.AuditLog                 { return &auditLog{s: t.s, t: t} }
func (t *txn) Notifications() store.NotificationSink { return &notificationSink{s: t.s, t: t} }
func (t *txn) Directory() store.RecipientDirectory   { return &directory{s: t.s} }

// lock acquires the job's lock for the lifetime of the transaction
func (t *txn) lock(ctx context.Context, jobID int64) error {
	if _, ok := t.held[jobID]; ok {
		return nil
	}

	t.s.mu.Lock()
	l, ok := t.s.locks[jobID]
	if !ok {
		l = make(chan struct{}, 1)
		t.s.locks[jobID] = l
	}
	t.s.mu.Unlock()

	select {
	case l <- struct{}{}:
		t.held[jobID] = l
		return nil
	case <-ctx.Done():
		return domain.Internal("lock job", ctx.Err())
	}
}

func (t *txn) release() {
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}

func (t *txn) stageJob(id int64, j *domain.Job) {
	if _, ok := t.jobs[id]; !ok {
		t.jobOrder = append(t.jobOrder, id)
	}
	t.jobs[id] = j
}

// job returns a copy of the job as seen by this transaction
func (t *txn) job(id int64) (*domain.Job, bool) {
	if j, ok := t.jobs[id]; ok {
		if j == nil {
			return nil, false
		}
		return j.Clone(), true
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	j, ok := t.s.jobs[id]
	if !ok {
		return nil, false
	}
	return j.Clone(), true
}

// allJobs merges committed and staged jobs
func (t *txn) allJobs() []*domain.Job {
	t.s.mu.Lock()
	merged := make(map[int64]*domain.Job, len(t.s.jobs))
	for id, j := range t.s.jobs {
		merged[id] = j.Clone()
	}
	t.s.mu.Unlock()

	for id, j := range t.jobs {
		if j == nil {
			delete(merged, id)
			continue
		}
		merged[id] = j.Clone()
	}

	out := make([]*domain.Job, 0, len(merged))
	for _, j := range merged {
		out = append(out, j)
	}
	return out
}

func (t *txn) notification(id int64) (*domain.Notification, bool) {
	if n, ok := t.notifications[id]; ok {
		return cloneNotification(n), true
	}

	t.s.mu.Lock()
	n, ok := t.s.notifications[id]
	if ok {
		n = cloneNotification(n)
	}
	t.s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return t.withStagedRead(n), true
}

// withStagedRead overlays a read mark staged by this transaction
func (t *txn) withStagedRead(n *domain.Notification) *domain.Notification {
	if at, ok := t.reads[n.ID]; ok && n.ReadAt == nil {
		v := at
		n.ReadAt = &v
	}
	return n
}

// markRead stages a read mark. Notifications created in this transaction are
// updated in place; committed ones are only marked at commit if still unread.
func (t *txn) markRead(n *domain.Notification, at time.Time) {
	if staged, ok := t.notifications[n.ID]; ok {
		v := at
		staged.ReadAt = &v
		return
	}
	if _, ok := t.reads[n.ID]; !ok {
		t.reads[n.ID] = at
	}
}

func (t *txn) recipientNotifications(recipientID int64) []*domain.Notification {
	merged := make(map[int64]*domain.Notification)

	t.s.mu.Lock()
	for id, n := range t.s.notifications {
		if n.RecipientID == recipientID {
			merged[id] = cloneNotification(n)
		}
	}
	t.s.mu.Unlock()

	for _, n := range merged {
		t.withStagedRead(n)
	}

	for id, n := range t.notifications {
		if n.RecipientID == recipientID {
			merged[id] = cloneNotification(n)
		}
	}

	out := make([]*domain.Notification, 0, len(merged))
	for _, n := range merged {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (t *txn) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var deleted []int64
	for _, id := range t.jobOrder {
		j := t.jobs[id]
		if j == nil {
			deleted = append(deleted, id)
			continue
		}
		t.s.jobs[id] = j
	}

	t.s.transitions = append(t.s.transitions, t.transitions...)

	for id, n := range t.notifications {
		if n.JobID != nil {
			if _, ok := t.s.jobs[*n.JobID]; !ok {
				continue
			}
		}
		t.s.notifications[id] = n
	}

	// same guard as WHERE read_at IS NULL: a notification deleted or read
	// by a concurrent commit is left as it is
	for id, at := range t.reads {
		n, ok := t.s.notifications[id]
		if !ok || n.ReadAt != nil {
			continue
		}
		v := at
		n.ReadAt = &v
	}

	for _, id := range deleted {
		t.s.cascadeDeleteLocked(id)
	}
}

// cascadeDeleteLocked removes a job with its transitions and job-linked
// notifications. Caller holds s.mu.
func (s *Store) cascadeDeleteLocked(jobID int64) {
	delete(s.jobs, jobID)

	kept := s.transitions[:0]
	for _, rec := range s.transitions {
		if rec.JobID != jobID {
			kept = append(kept, rec)
		}
	}
	s.transitions = kept

	for id, n := range s.notifications {
		if n.JobID != nil && *n.JobID == jobID {
			delete(s.notifications, id)
		}
	}
}

func (s *Store) nextJobID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastJobID++
	return s.lastJobID
}

func (s *Store) nextTransitionID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTransitionID++
	return s.lastTransitionID
}

func (s *Store) nextNotificationID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastNotificationID++
	return s.lastNotificationID
}

func (s *Store) principalExists(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.principals[id]
	return ok
}

func cloneNotification(n *domain.Notification) *domain.Notification {
	cp := *n
	if n.JobID != nil {
		v := *n.JobID
		cp.JobID = &v
	}
	if n.ReadAt != nil {
		v := *n.ReadAt
		cp.ReadAt = &v
	}
	return &cp
}
