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

package cluster

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"time"
)

import (
	"github.com/cenkalti/backoff/v4"

	"github.com/pkg/errors"

	"github.com/spf13/cast"

	"go.etcd.io/etcd/api/v3/mvccpb"

	clientv3 "go.etcd.io/etcd/client/v3"
)

import (
	"github.com/arana-db/trxmgr/pkg/config"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

// Membership publishes this coordinator in etcd and feeds a RebootTracker
// with the coordinators published by the others.
type Membership struct {
	client  *clientv3.Client
	prefix  string
	ttl     int64
	leaseID clientv3.LeaseID
}

func NewMembership(cfg *config.Cluster) (*Membership, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		log.Errorf("failed to initialize etcd client: %v", err)
		return nil, errors.WithStack(err)
	}
	return NewMembershipWithClient(client, cfg.Prefix, cfg.LeaseTTL), nil
}

func NewMembershipWithClient(client *clientv3.Client, prefix string, ttl int64) *Membership {
	return &Membership{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		ttl:    ttl,
	}
}

func (m *Membership) peersPrefix() string {
	return m.prefix + "/peers/"
}

func (m *Membership) peerKey(serverID string) string {
	return m.peersPrefix() + serverID
}

func (m *Membership) rebootKey(serverID string) string {
	return path.Join(m.prefix, "reboots", serverID)
}

// NextRebootID increments and returns the persistent reboot counter of serverID.
func (m *Membership) NextRebootID(ctx context.Context, serverID string) (uint64, error) {
	key := m.rebootKey(serverID)
	for {
		resp, err := m.client.Get(ctx, key)
		if err != nil {
			return 0, errors.Wrapf(err, "cannot read reboot id of %s", serverID)
		}
		var (
			current uint64
			rev     int64
		)
		if len(resp.Kvs) > 0 {
			current = cast.ToUint64(string(resp.Kvs[0].Value))
			rev = resp.Kvs[0].ModRevision
		}
		next := current + 1
		txn, err := m.client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", rev)).
			Then(clientv3.OpPut(key, cast.ToString(next))).
			Commit()
		if err != nil {
			return 0, errors.Wrapf(err, "cannot store reboot id of %s", serverID)
		}
		if txn.Succeeded {
			return next, nil
		}
	}
}

// Register publishes self under a lease and keeps the lease alive until ctx ends.
func (m *Membership) Register(ctx context.Context, self Peer) error {
	grant, err := m.client.Grant(ctx, m.ttl)
	if err != nil {
		return errors.Wrap(err, "cannot grant etcd lease")
	}
	m.leaseID = grant.ID

	data, err := json.Marshal(self)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err = m.client.Put(ctx, m.peerKey(self.ServerID), string(data), clientv3.WithLease(grant.ID)); err != nil {
		return errors.Wrapf(err, "cannot publish coordinator %s", self.ServerID)
	}

	ch, err := m.client.KeepAlive(ctx, grant.ID)
	if err != nil {
		return errors.Wrap(err, "cannot keep etcd lease alive")
	}
	go func() {
		for range ch {
		}
		if ctx.Err() == nil {
			log.Errorf("etcd lease of coordinator %s lost", self.ServerID)
		}
	}()
	log.Infof("published coordinator %s", self)
	return nil
}

// Unregister removes the published entry of this coordinator.
func (m *Membership) Unregister(ctx context.Context) error {
	if m.leaseID == 0 {
		return nil
	}
	_, err := m.client.Revoke(ctx, m.leaseID)
	m.leaseID = 0
	return errors.WithStack(err)
}

// Sync loads the current peer list into tracker and follows changes until ctx ends.
func (m *Membership) Sync(ctx context.Context, tracker *RebootTracker) error {
	rev, err := m.resync(ctx, tracker)
	if err != nil {
		return err
	}
	go m.follow(ctx, tracker, rev)
	return nil
}

// resync replaces the peers of tracker with the published ones and returns
// the revision of the listing.
func (m *Membership) resync(ctx context.Context, tracker *RebootTracker) (int64, error) {
	resp, err := m.client.Get(ctx, m.peersPrefix(), clientv3.WithPrefix())
	if err != nil {
		return 0, errors.Wrap(err, "cannot list coordinators")
	}
	peers := make([]Peer, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		if p, ok := decodePeer(kv.Value); ok {
			peers = append(peers, p)
		}
	}
	tracker.Reset(peers)
	return resp.Header.Revision, nil
}

// follow applies peer changes to tracker until ctx ends. Once a watch fails
// or closes, for example after a compaction or a lost leader, the peers are
// listed again and a new watch starts from that listing.
func (m *Membership) follow(ctx context.Context, tracker *RebootTracker, rev int64) {
	for {
		err := m.watch(ctx, tracker, rev)
		if ctx.Err() != nil {
			return
		}
		log.Warnf("coordinator watch stopped: %v, listing coordinators again", err)

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 100 * time.Millisecond
		bo.MaxInterval = 5 * time.Second
		bo.MaxElapsedTime = 0
		relist := func() error {
			var err error
			if rev, err = m.resync(ctx, tracker); err != nil {
				log.Warnf("%v", err)
			}
			return err
		}
		if err = backoff.Retry(relist, backoff.WithContext(bo, ctx)); err != nil {
			return
		}
	}
}

func (m *Membership) watch(ctx context.Context, tracker *RebootTracker, rev int64) error {
	wctx, cancel := context.WithCancel(clientv3.WithRequireLeader(ctx))
	defer cancel()

	wch := m.client.Watch(wctx, m.peersPrefix(), clientv3.WithPrefix(), clientv3.WithRev(rev+1))
	for resp := range wch {
		if err := resp.Err(); err != nil {
			return err
		}
		for _, event := range resp.Events {
			switch event.Type {
			case mvccpb.PUT:
				if p, ok := decodePeer(event.Kv.Value); ok {
					tracker.PeerUp(p)
				}
			case mvccpb.DELETE:
				tracker.PeerDown(strings.TrimPrefix(string(event.Kv.Key), m.peersPrefix()))
			}
		}
	}
	return errors.New("coordinator watch closed")
}

func (m *Membership) Close() error {
	return m.client.Close()
}

func decodePeer(data []byte) (Peer, bool) {
	var p Peer
	if err := json.Unmarshal(data, &p); err != nil || len(p.ServerID) == 0 {
		log.Warnf("ignoring malformed coordinator entry: %s", data)
		return p, false
	}
	return p, true
}
