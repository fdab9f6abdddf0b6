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

package transaction

import (
	"context"
	"time"
)

import (
	perrors "github.com/pkg/errors"

	"go.uber.org/multierr"
)

import (
	"github.com/arana-db/trxmgr/pkg/metrics"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/trace"
	"github.com/arana-db/trxmgr/pkg/util/log"
	"github.com/arana-db/trxmgr/pkg/util/rand2"
)

// GarbageCollect aborts expired managed transactions and purges tombstones
// older than the tombstone ttl. With abortAll every open managed transaction
// is aborted regardless of its expiry. It reports whether anything changed.
func (r *Registry) GarbageCollect(abortAll bool) bool {
	_, span := trace.Tracer().Start(context.Background(), "transaction.gc")
	defer span.End()

	var (
		start   = time.Now()
		now     = r.now()
		didWork bool
		toAbort []*managedTrx
		toPurge []proto.TransactionID
	)

	for _, b := range r.buckets {
		toPurge = toPurge[:0]

		b.mu.RLock()
		for id, e := range b.trxs {
			expired := e.expiredAt(now)
			switch {
			case e.finalized.Load():
				if expired {
					toPurge = append(toPurge, id)
				}
			case e.origKind == proto.KindStandaloneAQL:
				// owned by its query, only reported
				if expired && e.everExpired.CAS(false, true) {
					log.WarnfWithLogType(log.GCLog, "query transaction %d in database '%s' expired", id, e.database)
				}
			case abortAll || expired:
				toAbort = append(toAbort, e)
			}
		}
		b.mu.RUnlock()

		if len(toPurge) == 0 {
			continue
		}
		b.mu.Lock()
		for _, id := range toPurge {
			if e, ok := b.trxs[id]; ok && e.finalized.Load() && e.expiredAt(now) {
				delete(b.trxs, id)
				r.purged.Inc()
				didWork = true
			}
		}
		b.mu.Unlock()
	}

	reason := byExpiry
	if abortAll {
		reason = byAbortAll
	}
	for _, e := range toAbort {
		if !r.barrier.TryAcquire(1) {
			log.DebugfWithLogType(log.GCLog, "commit barrier is held, postponing aborts")
			break
		}
		abortStart := time.Now()
		status, changed, err := e.finalize(context.Background(), proto.StatusAborted, reason, r.now, r.cfg.TombstoneTTL)
		r.barrier.Release(1)

		switch {
		case changed:
			didWork = true
			if reason == byExpiry {
				r.expired.Inc()
			}
			r.finalized(e, status, time.Since(abortStart))
			log.InfofWithLogType(log.GCLog, "aborted transaction %d in database '%s', expired: %t", e.id, e.database, reason == byExpiry)
		case err == nil, perrors.Is(err, errNotExpired):
		case perrors.Is(err, ErrBusy):
			log.DebugfWithLogType(log.GCLog, "transaction %d has side users, skipping", e.id)
		default:
			log.WarnfWithLogType(log.GCLog, "failed to abort transaction %d: %v", e.id, err)
		}
	}

	metrics.Observe(metrics.GCDuration, time.Since(start).Seconds())
	return didWork
}

// StartGC runs GarbageCollect every interval until ctx is done, then aborts
// every remaining managed transaction. The returned channel is closed on exit.
func (r *Registry) StartGC(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		soon := interval / 4
		if soon <= 0 {
			soon = interval
		}
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				r.GarbageCollect(true)
				return
			case <-timer.C:
				next := rand2.JitterFraction(interval, 0.1)
				if r.GarbageCollect(false) && !r.SoftShutdownOngoing() {
					next = soon
				}
				timer.Reset(next)
			}
		}
	}()
	return done
}

// AbortAllManagedWriteTrx aborts every open managed write transaction of
// user, or of all users if user is empty. With fanout the other coordinators
// are asked to do the same.
func (r *Registry) AbortAllManagedWriteTrx(ctx context.Context, user string, fanout bool) error {
	var candidates []*managedTrx
	for _, b := range r.buckets {
		b.mu.RLock()
		for _, e := range b.trxs {
			if e.origKind != proto.KindManaged || e.readOnly || e.finalized.Load() {
				continue
			}
			if len(user) > 0 && e.user != user {
				continue
			}
			candidates = append(candidates, e)
		}
		b.mu.RUnlock()
	}

	var errs error
	for _, e := range candidates {
		if _, err := r.AbortManagedTrx(ctx, e.id, e.database); err != nil && !perrors.Is(err, ErrNotFound) {
			errs = multierr.Append(errs, perrors.Wrapf(err, "abort transaction %d", e.id))
		}
	}
	log.InfofWithLogType(log.TxLog, "aborted %d write transactions of user '%s'", len(candidates), user)

	if fanout && r.fanout != nil {
		if err := r.fanout.AbortAllManagedWriteTrx(ctx, user); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
