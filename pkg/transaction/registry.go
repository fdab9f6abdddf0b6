/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package transaction keeps track of the managed transactions of one coordinator.
// It guarantees that each transaction is committed or aborted at most once,
// expires abandoned transactions, and keeps tombstones of finalized ones so
// that duplicate requests observe the decided outcome.
package transaction

import (
	"context"
	"encoding/binary"
	"sync"
	"time"
)

import (
	"github.com/cespare/xxhash/v2"

	perrors "github.com/pkg/errors"

	uatomic "go.uber.org/atomic"

	"golang.org/x/sync/semaphore"
)

import (
	"github.com/arana-db/trxmgr/pkg/config"
	"github.com/arana-db/trxmgr/pkg/gtid"
	"github.com/arana-db/trxmgr/pkg/lease"
	"github.com/arana-db/trxmgr/pkg/metrics"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/util/identity"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

// barrierWeight is taken by HoldTransactions, every finalize takes one unit.
const barrierWeight = 1 << 30

type bucket struct {
	mu   sync.RWMutex
	trxs map[proto.TransactionID]*managedTrx
}

// Option customizes a Registry.
type Option func(r *Registry)

// WithRebootTracker aborts transactions whose originating coordinator goes away.
func WithRebootTracker(tracker proto.RebootTracker) Option {
	return func(r *Registry) {
		r.tracker = tracker
	}
}

// WithFanout repeats bulk operations on the other coordinators.
func WithFanout(fanout proto.ClusterFanout) Option {
	return func(r *Registry) {
		r.fanout = fanout
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func WithIDGenerator(next func() uint64) Option {
	return func(r *Registry) {
		r.nextID = next
	}
}

func WithIssuer(issuer *lease.Issuer) Option {
	return func(r *Registry) {
		r.issuer = issuer
	}
}

func WithServerID(id string) Option {
	return func(r *Registry) {
		r.serverID = id
	}
}

// Registry owns all managed transactions of this coordinator.
//
// Lock order: commit barrier, then bucket lock or entry lock. A bucket lock
// is never held while an entry lock is acquired for a state call, and lease
// release takes no lock at all.
type Registry struct {
	cfg      config.Registry
	buckets  []*bucket
	mask     uint64
	factory  proto.StateFactory
	tracker  proto.RebootTracker
	fanout   proto.ClusterFanout
	issuer   *lease.Issuer
	nextID   func() uint64
	now      func() time.Time
	serverID string

	running           uatomic.Int64
	insertsDisallowed uatomic.Bool
	softShutdown      uatomic.Bool

	barrier   *semaphore.Weighted
	held      uatomic.Bool
	heldSince uatomic.Int64

	committed uatomic.Uint64
	aborted   uatomic.Uint64
	expired   uatomic.Uint64
	purged    uatomic.Uint64
}

func New(cfg *config.Registry, factory proto.StateFactory, opts ...Option) (*Registry, error) {
	if cfg.Buckets <= 0 || cfg.Buckets&(cfg.Buckets-1) != 0 {
		return nil, perrors.Errorf("bucket count must be a positive power of two, got %d", cfg.Buckets)
	}
	r := &Registry{
		cfg:     *cfg,
		buckets: make([]*bucket, cfg.Buckets),
		mask:    uint64(cfg.Buckets - 1),
		factory: factory,
		barrier: semaphore.NewWeighted(barrierWeight),
		now:     time.Now,
	}
	for i := range r.buckets {
		r.buckets[i] = &bucket{trxs: make(map[proto.TransactionID]*managedTrx)}
	}
	for _, opt := range opts {
		opt(r)
	}
	if len(r.serverID) == 0 {
		r.serverID = identity.GetNodeIdentity()
	}
	if r.issuer == nil {
		r.issuer = lease.NewIssuer()
	}
	if r.nextID == nil {
		g, err := gtid.NewGeneratorFor(r.serverID)
		if err != nil {
			return nil, err
		}
		r.nextID = g.Next
	}
	return r, nil
}

func (r *Registry) bucketFor(id proto.TransactionID) *bucket {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(id))
	return r.buckets[xxhash.Sum64(b[:])&r.mask]
}

func (r *Registry) lookup(id proto.TransactionID) *managedTrx {
	b := r.bucketFor(id)
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trxs[id]
}

func (r *Registry) ttlFor(opts *proto.TransactionOptions) time.Duration {
	switch {
	case opts.TTL > 0:
		return opts.TTL
	case opts.IsFollower:
		return r.cfg.FollowerTTL
	default:
		return r.cfg.IdleTTL
	}
}

// RegisterTransaction counts a transaction which is not managed by the registry.
func (r *Registry) RegisterTransaction(id proto.TransactionID, isReadOnly, isFollower bool) *RunningCounter {
	r.running.Inc()
	log.Debugf("registered transaction %d, read-only: %t, follower: %t", id, isReadOnly, isFollower)
	return &RunningCounter{id: id, counter: &r.running}
}

// Running returns the number of transactions counted as running.
func (r *Registry) Running() int64 {
	return r.running.Load()
}

// CreateManagedTrx starts a managed transaction under a freshly allocated id.
func (r *Registry) CreateManagedTrx(ctx context.Context, database string, opts *proto.TransactionOptions) (proto.TransactionID, error) {
	id := proto.TransactionID(r.nextID())
	if err := r.createManagedTrx(ctx, id, database, opts); err != nil {
		return 0, err
	}
	return id, nil
}

// EnsureManagedTrx makes sure the transaction with the given id exists,
// creating it if necessary. An existing transaction has its expiry extended.
func (r *Registry) EnsureManagedTrx(ctx context.Context, id proto.TransactionID, database string, opts *proto.TransactionOptions) error {
	for {
		if e := r.lookup(id); e != nil {
			return r.ensureExisting(e, database, opts)
		}
		err := r.createManagedTrx(ctx, id, database, opts)
		if !perrors.Is(err, ErrDuplicateID) {
			return err
		}
	}
}

func (r *Registry) ensureExisting(e *managedTrx, database string, opts *proto.TransactionOptions) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if t, ok := e.payload.(*tombstone); ok {
		return &AlreadyFinalizedError{ID: e.id, Status: t.status}
	}
	if e.origKind != proto.KindManaged ||
		e.database != database ||
		e.user != opts.User ||
		e.accessMode != opts.AccessMode ||
		e.readOnly != opts.IsReadOnly() ||
		e.follower != opts.IsFollower {
		return perrors.Wrapf(ErrOptionsConflict, "transaction %d", e.id)
	}
	e.touch(r.now())
	return nil
}

func (r *Registry) createManagedTrx(ctx context.Context, id proto.TransactionID, database string, opts *proto.TransactionOptions) error {
	if r.insertsDisallowed.Load() {
		return ErrShuttingDown
	}
	if id == 0 {
		return perrors.New("transaction id must not be zero")
	}
	if r.lookup(id) != nil {
		return perrors.Wrapf(ErrDuplicateID, "transaction %d", id)
	}

	state, err := r.factory.NewState(ctx, id, database, opts)
	if err != nil {
		return err
	}
	hints := opts.Hints | proto.HintGlobalManaged
	if opts.IsFollower {
		hints |= proto.HintIsFollowerTrx
	}
	if err = state.Begin(ctx, hints); err != nil {
		return err
	}

	e := newManagedTrx(id, proto.KindManaged, state, database, opts, r.ttlFor(opts), r.now())
	b := r.bucketFor(id)
	b.mu.Lock()
	if _, ok := b.trxs[id]; ok {
		b.mu.Unlock()
		r.discardState(ctx, id, state)
		return perrors.Wrapf(ErrDuplicateID, "transaction %d", id)
	}
	b.trxs[id] = e
	b.mu.Unlock()

	r.running.Inc()
	log.DebugfWithLogType(log.TxLog, "created managed transaction %d in database '%s', ttl %s", id, database, e.ttl)

	if opts.Origin != nil && r.tracker != nil {
		return r.watchOrigin(ctx, e, *opts.Origin)
	}
	return nil
}

// watchOrigin aborts e once its coordinator is gone. e is already in its
// bucket, so a callback firing at any point finds it. When the coordinator
// cannot be watched the entry is aborted and the error returned.
func (r *Registry) watchOrigin(ctx context.Context, e *managedTrx, origin proto.PeerOrigin) error {
	guard, err := r.tracker.CallMeOnChange(origin, func() {
		r.abortOnPeerChange(e.id, e.database, origin)
	}, "abort managed transaction "+e.id.String())
	if err != nil {
		if _, abortErr := r.AbortManagedTrx(ctx, e.id, e.database); abortErr != nil {
			log.Warnf("failed to abort transaction %d of unwatchable coordinator %s: %v", e.id, origin, abortErr)
		}
		return perrors.Wrapf(err, "cannot watch coordinator %s for transaction %d", origin, e.id)
	}
	e.setGuard(guard)
	return nil
}

func (r *Registry) discardState(ctx context.Context, id proto.TransactionID, state proto.TransactionState) {
	if err := state.Abort(ctx); err != nil {
		log.Warnf("failed to abort discarded transaction %d: %v", id, err)
	}
}

func (r *Registry) abortOnPeerChange(id proto.TransactionID, database string, origin proto.PeerOrigin) {
	log.InfofWithLogType(log.TxLog, "coordinator %s is gone, aborting transaction %d", origin, id)
	if _, err := r.AbortManagedTrx(context.Background(), id, database); err != nil && !perrors.Is(err, ErrNotFound) {
		log.Warnf("failed to abort transaction %d of lost coordinator %s: %v", id, origin, err)
	}
}

// RegisterAQLTrx tracks a transaction owned by a single query.
func (r *Registry) RegisterAQLTrx(id proto.TransactionID, state proto.TransactionState) error {
	if r.insertsDisallowed.Load() {
		return ErrShuttingDown
	}
	opts := &proto.TransactionOptions{User: state.User()}
	e := newManagedTrx(id, proto.KindStandaloneAQL, state, state.Database(), opts, r.cfg.IdleTTL, r.now())

	b := r.bucketFor(id)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.trxs[id]; ok {
		return perrors.Wrapf(ErrDuplicateID, "transaction %d", id)
	}
	b.trxs[id] = e
	r.running.Inc()
	return nil
}

// UnregisterAQLTrx forgets a query transaction registered with RegisterAQLTrx.
func (r *Registry) UnregisterAQLTrx(id proto.TransactionID) {
	b := r.bucketFor(id)
	b.mu.Lock()
	e, ok := b.trxs[id]
	if ok && e.origKind == proto.KindStandaloneAQL {
		delete(b.trxs, id)
	}
	b.mu.Unlock()

	if !ok {
		log.Warnf("unregistering unknown query transaction %d", id)
		return
	}
	if e.origKind != proto.KindStandaloneAQL {
		log.Errorf("transaction %d is not a query transaction", id)
		return
	}
	if !e.finalized.Load() {
		r.running.Dec()
	}
}

// LeaseManagedTrx leases a managed transaction. Side users may only read,
// and block finalization until they release their lease.
func (r *Registry) LeaseManagedTrx(id proto.TransactionID, mode proto.AccessMode, isSideUser bool) (*TransactionLease, error) {
	e := r.lookup(id)
	if e == nil {
		return nil, perrors.Wrapf(ErrNotFound, "transaction %d", id)
	}
	state, responsible, err := e.lease(mode, isSideUser, r.now())
	if err != nil {
		return nil, err
	}
	return &TransactionLease{
		id:          r.issuer.Issue(lease.Peer{ServerID: r.serverID, Resource: id.String()}),
		trx:         id,
		mode:        mode,
		state:       state,
		entry:       e,
		sideUser:    isSideUser,
		responsible: responsible,
	}, nil
}

// ReturnManagedTrx gives back a lease obtained without a TransactionLease handle.
func (r *Registry) ReturnManagedTrx(id proto.TransactionID, isSideUser bool) {
	e := r.lookup(id)
	if e == nil {
		log.Debugf("returning unknown transaction %d", id)
		return
	}
	if isSideUser {
		e.returnSideUser()
	}
}

// GetManagedTrxStatus returns the status of a transaction, StatusUndefined if unknown.
func (r *Registry) GetManagedTrxStatus(id proto.TransactionID, database string) proto.Status {
	e := r.lookup(id)
	if e == nil || !e.inDatabase(database) {
		return proto.StatusUndefined
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	e.touch(r.now())
	return e.statusLocked()
}

func (r *Registry) InitiateSoftShutdown() {
	if r.softShutdown.CAS(false, true) {
		log.Infof("soft shutdown of transaction registry initiated")
	}
}

func (r *Registry) SoftShutdownOngoing() bool {
	return r.softShutdown.Load()
}

// DisallowInserts makes every later create fail with ErrShuttingDown.
func (r *Registry) DisallowInserts() {
	r.insertsDisallowed.Store(true)
}

// HoldTransactions blocks every new commit or abort until ReleaseTransactions.
// It reports false if the in-flight finalizations did not drain in time.
func (r *Registry) HoldTransactions(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := r.barrier.Acquire(ctx, barrierWeight); err != nil {
		log.Warnf("failed to hold transactions within %s", timeout)
		return false
	}
	r.heldSince.Store(r.now().UnixNano())
	r.held.Store(true)
	log.Infof("transaction commits are held")
	return true
}

func (r *Registry) ReleaseTransactions() {
	if !r.held.CAS(true, false) {
		return
	}
	held := r.now().Sub(time.Unix(0, r.heldSince.Load()))
	r.barrier.Release(barrierWeight)
	metrics.Observe(metrics.HoldDuration, held.Seconds())
	log.Infof("transaction commits released after %s", held)
}

// Stats implements metrics.StatsSource.
func (r *Registry) Stats() metrics.RegistryStats {
	s := metrics.RegistryStats{
		Running:         r.running.Load(),
		Committed:       r.committed.Load(),
		Aborted:         r.aborted.Load(),
		Expired:         r.expired.Load(),
		Purged:          r.purged.Load(),
		BarrierHeld:     r.held.Load(),
		InsertsDisabled: r.insertsDisallowed.Load(),
	}
	for _, b := range r.buckets {
		b.mu.RLock()
		for _, e := range b.trxs {
			switch {
			case e.finalized.Load():
				s.Tombstones++
			case e.origKind == proto.KindStandaloneAQL:
				s.StandaloneAQL++
			default:
				s.Managed++
			}
			s.SideUsers += int64(e.sideUsers.Load())
		}
		b.mu.RUnlock()
	}
	return s
}
