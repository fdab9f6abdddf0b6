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
	"sync"
	"time"
)

import (
	perrors "github.com/pkg/errors"

	uatomic "go.uber.org/atomic"
)

import (
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

type finalizeReason uint8

const (
	byRequest finalizeReason = iota
	byExpiry
	byAbortAll
)

// payload is either *openTrx or *tombstone.
type payload interface {
	kind() proto.Kind
}

type openTrx struct {
	k     proto.Kind
	state proto.TransactionState
}

func (o *openTrx) kind() proto.Kind { return o.k }

type tombstone struct {
	status proto.Status
}

func (t *tombstone) kind() proto.Kind { return proto.KindTombstone }

// managedTrx is the registry's record of one transaction.
type managedTrx struct {
	id         proto.TransactionID
	origKind   proto.Kind
	database   string
	user       string
	accessMode proto.AccessMode
	readOnly   bool
	follower   bool
	ttl        time.Duration
	created    time.Time

	// mu guards the fields below, and is held while the state commits or aborts.
	mu                  sync.RWMutex
	payload             payload
	context             string
	guard               proto.CallbackGuard
	intermediateCommits bool

	expires     uatomic.Int64
	sideUsers   uatomic.Int32
	leased      uatomic.Bool
	everExpired uatomic.Bool
	// finalized mirrors payload for readers which hold no entry lock.
	finalized uatomic.Bool
}

func newManagedTrx(id proto.TransactionID, k proto.Kind, state proto.TransactionState, database string, opts *proto.TransactionOptions, ttl time.Duration, now time.Time) *managedTrx {
	e := &managedTrx{
		id:         id,
		origKind:   k,
		database:   database,
		user:       opts.User,
		accessMode: opts.AccessMode,
		readOnly:   opts.IsReadOnly(),
		follower:   opts.IsFollower,
		ttl:        ttl,
		created:    now,
		payload:    &openTrx{k: k, state: state},
		context:    opts.Context,
	}
	e.expires.Store(now.Add(ttl).UnixNano())
	return e
}

// touch pushes the expiry of an open entry forward. Callers hold mu.
func (e *managedTrx) touch(now time.Time) {
	if _, ok := e.payload.(*openTrx); ok {
		e.expires.Store(now.Add(e.ttl).UnixNano())
	}
}

// inDatabase matches every entry when database is empty.
func (e *managedTrx) inDatabase(database string) bool {
	return len(database) == 0 || e.database == database
}

func (e *managedTrx) expiredAt(now time.Time) bool {
	return now.UnixNano() >= e.expires.Load()
}

func (e *managedTrx) status() proto.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statusLocked()
}

func (e *managedTrx) statusLocked() proto.Status {
	if t, ok := e.payload.(*tombstone); ok {
		return t.status
	}
	return proto.StatusRunning
}

func (e *managedTrx) lease(mode proto.AccessMode, isSideUser bool, now time.Time) (proto.TransactionState, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch p := e.payload.(type) {
	case *tombstone:
		return nil, false, &AlreadyFinalizedError{ID: e.id, Status: p.status}
	case *openTrx:
		if p.k == proto.KindStandaloneAQL && !isSideUser {
			return nil, false, ErrDisallowedOperation
		}
		if isSideUser && mode != proto.AccessRead {
			return nil, false, ErrDisallowedOperation
		}
		if e.readOnly && mode != proto.AccessRead {
			return nil, false, ErrDisallowedOperation
		}
		if isSideUser {
			e.sideUsers.Inc()
		}
		e.touch(now)
		responsible := !isSideUser && e.leased.CAS(false, true)
		return p.state, responsible, nil
	}
	return nil, false, ErrNotFound
}

// setGuard attaches the failure guard, or cancels it when the entry was
// finalized before the guard arrived.
func (e *managedTrx) setGuard(g proto.CallbackGuard) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.payload.(*tombstone); ok {
		g.Cancel()
		return
	}
	e.guard = g
}

// returnSideUser takes no lock, so it is safe from any context.
func (e *managedTrx) returnSideUser() {
	if n := e.sideUsers.Dec(); n < 0 {
		e.sideUsers.Inc()
		log.Errorf("transaction %d: side user returned more often than leased", e.id)
	}
}

// finalize commits or aborts the state and turns the entry into a tombstone.
// changed reports whether this call performed the transition.
func (e *managedTrx) finalize(ctx context.Context, want proto.Status, reason finalizeReason, now func() time.Time, tombstoneTTL time.Duration) (status proto.Status, changed bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var open *openTrx
	switch p := e.payload.(type) {
	case *tombstone:
		return p.status, false, nil
	case *openTrx:
		open = p
	}

	if reason == byExpiry && !e.expiredAt(now()) {
		return proto.StatusRunning, false, errNotExpired
	}
	if e.sideUsers.Load() > 0 {
		return proto.StatusRunning, false, ErrBusy
	}
	if reason == byExpiry {
		e.everExpired.Store(true)
	}

	if want == proto.StatusCommitted {
		err = open.state.Commit(ctx)
		if err != nil && perrors.Is(err, proto.ErrAbortRequired) {
			if abortErr := open.state.Abort(ctx); abortErr != nil {
				log.Errorf("transaction %d: abort after failed commit: %v", e.id, abortErr)
				return proto.StatusRunning, false, err
			}
			e.toTombstone(open, proto.StatusAborted, now(), tombstoneTTL)
			return proto.StatusAborted, true, err
		}
	} else {
		err = open.state.Abort(ctx)
	}
	if err != nil {
		return proto.StatusRunning, false, err
	}

	e.toTombstone(open, want, now(), tombstoneTTL)
	return want, true, nil
}

func (e *managedTrx) toTombstone(open *openTrx, status proto.Status, now time.Time, tombstoneTTL time.Duration) {
	if ic, ok := open.state.(proto.IntermediateCommitter); ok {
		e.intermediateCommits = ic.HadIntermediateCommits()
	}
	e.payload = &tombstone{status: status}
	e.context = ""
	e.expires.Store(now.Add(tombstoneTTL).UnixNano())
	e.finalized.Store(true)
	if e.guard != nil {
		e.guard.Cancel()
		e.guard = nil
	}
}

func (e *managedTrx) info(now time.Time, serverID string, details bool) proto.TransactionInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	info := proto.TransactionInfo{
		ID:       e.id,
		Database: e.database,
		User:     e.user,
		Status:   e.statusLocked(),
		Kind:     e.payload.kind(),
		Server:   serverID,
	}
	if details {
		info.Context = e.context
		if remaining := time.Duration(e.expires.Load() - now.UnixNano()); remaining > 0 {
			info.TTLRemaining = remaining
		}
		info.SideUsers = e.sideUsers.Load()
		info.EverExpired = e.everExpired.Load()
		info.IntermediateCommits = e.intermediateCommits
	}
	return info
}
