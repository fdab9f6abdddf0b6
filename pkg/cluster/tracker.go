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

// Package cluster tracks the coordinators of the cluster. It aborts
// transactions of coordinators that went away and repeats registry
// operations on the other coordinators.
package cluster

import (
	"fmt"
	"sync"
)

import (
	perrors "github.com/pkg/errors"

	uatomic "go.uber.org/atomic"
)

import (
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

var (
	ErrUnknownPeer  = perrors.New("unknown coordinator")
	ErrPeerRebooted = perrors.New("coordinator has rebooted")
)

// Peer is one coordinator incarnation as published in the membership store.
type Peer struct {
	ServerID string `json:"server_id"`
	RebootID uint64 `json:"reboot_id"`
	Address  string `json:"address"`
	Version  string `json:"version,omitempty"`
}

func (p Peer) String() string {
	return fmt.Sprintf("%s@%d(%s)", p.ServerID, p.RebootID, p.Address)
}

type callback struct {
	id       uint64
	rebootID uint64
	fn       func()
	desc     string
}

// RebootTracker implements proto.RebootTracker over the known peer list.
// Callbacks fire once, on their own goroutine, when the peer they were
// registered for disappears or comes back with a newer reboot id.
type RebootTracker struct {
	mu        sync.Mutex
	peers     map[string]Peer
	callbacks map[string]map[uint64]*callback
	seq       uatomic.Uint64
}

func NewRebootTracker() *RebootTracker {
	return &RebootTracker{
		peers:     make(map[string]Peer),
		callbacks: make(map[string]map[uint64]*callback),
	}
}

// CallMeOnChange registers fn for the given coordinator incarnation.
// It fails when the incarnation is unknown or already replaced, so the
// caller never holds a guard for a coordinator that is gone.
func (t *RebootTracker) CallMeOnChange(origin proto.PeerOrigin, fn func(), desc string) (proto.CallbackGuard, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.peers[origin.ServerID]
	if !ok {
		return nil, perrors.Wrapf(ErrUnknownPeer, "coordinator %s", origin.ServerID)
	}

	if cur.RebootID > origin.RebootID {
		return nil, perrors.Wrapf(ErrPeerRebooted, "coordinator %s is at reboot %d, not %d", origin.ServerID, cur.RebootID, origin.RebootID)
	}

	cb := &callback{id: t.seq.Inc(), rebootID: origin.RebootID, fn: fn, desc: desc}

	byPeer, ok := t.callbacks[origin.ServerID]
	if !ok {
		byPeer = make(map[uint64]*callback)
		t.callbacks[origin.ServerID] = byPeer
	}
	byPeer[cb.id] = cb
	return &guard{tracker: t, serverID: origin.ServerID, id: cb.id}, nil
}

// Peers returns the known peers.
func (t *RebootTracker) Peers() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	peers := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	return peers
}

// Lookup returns the current incarnation of a peer.
func (t *RebootTracker) Lookup(serverID string) (Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[serverID]
	return p, ok
}

// PeerUp records a published peer.
func (t *RebootTracker) PeerUp(p Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.peers[p.ServerID]
	t.peers[p.ServerID] = p
	if !ok {
		log.Infof("coordinator %s joined", p)
		return
	}
	if p.RebootID > prev.RebootID {
		log.Infof("coordinator %s rebooted", p)
		t.fireOlderThan(p.ServerID, p.RebootID)
	}
}

// PeerDown records that a peer is gone.
func (t *RebootTracker) PeerDown(serverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.peers[serverID]; !ok {
		return
	}
	delete(t.peers, serverID)
	log.Warnf("coordinator %s is gone", serverID)
	t.fireOlderThan(serverID, ^uint64(0))
}

// Reset replaces the peer list, firing callbacks for every vanished or rebooted peer.
func (t *RebootTracker) Reset(peers []Peer) {
	seen := make(map[string]struct{}, len(peers))
	for _, p := range peers {
		seen[p.ServerID] = struct{}{}
		t.PeerUp(p)
	}
	var gone []string
	t.mu.Lock()
	for id := range t.peers {
		if _, ok := seen[id]; !ok {
			gone = append(gone, id)
		}
	}
	t.mu.Unlock()
	for _, id := range gone {
		t.PeerDown(id)
	}
}

func (t *RebootTracker) fireOlderThan(serverID string, rebootID uint64) {
	for id, cb := range t.callbacks[serverID] {
		if cb.rebootID < rebootID {
			delete(t.callbacks[serverID], id)
			t.fire(serverID, cb)
		}
	}
	if len(t.callbacks[serverID]) == 0 {
		delete(t.callbacks, serverID)
	}
}

func (t *RebootTracker) fire(serverID string, cb *callback) {
	log.Debugf("coordinator %s@%d changed, running callback: %s", serverID, cb.rebootID, cb.desc)
	go cb.fn()
}

func (t *RebootTracker) cancel(serverID string, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if byPeer, ok := t.callbacks[serverID]; ok {
		delete(byPeer, id)
		if len(byPeer) == 0 {
			delete(t.callbacks, serverID)
		}
	}
}

func (t *RebootTracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, byPeer := range t.callbacks {
		n += len(byPeer)
	}
	return n
}

type guard struct {
	once     sync.Once
	tracker  *RebootTracker
	serverID string
	id       uint64
}

func (g *guard) Cancel() {
	g.once.Do(func() {
		if g.tracker != nil {
			g.tracker.cancel(g.serverID, g.id)
		}
	})
}
