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

package test

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/arana-db/trxmgr/pkg/admin"
	_ "github.com/arana-db/trxmgr/pkg/admin/router"
	"github.com/arana-db/trxmgr/pkg/cluster"
	"github.com/arana-db/trxmgr/pkg/config"
	"github.com/arana-db/trxmgr/pkg/lease"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/state"
	"github.com/arana-db/trxmgr/pkg/transaction"
)

var _endpoint string

func TestMain(m *testing.M) {
	if len(os.Getenv("TRXMGR_INTEGRATION")) == 0 {
		// needs a docker daemon
		os.Exit(0)
	}

	ctx := context.Background()
	container, err := SetupEtcdContainer(ctx)
	if err != nil {
		panic(err)
	}
	_endpoint = container.Endpoint

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

type coordinator struct {
	id         string
	registry   *transaction.Registry
	membership *cluster.Membership
	tracker    *cluster.RebootTracker
	server     *httptest.Server
}

func startCoordinator(t *testing.T, ctx context.Context, id string) *coordinator {
	cfg := config.NewBootstrap()
	cfg.Cluster.Enable = true
	cfg.Cluster.Endpoints = []string{_endpoint}
	cfg.Cluster.Prefix = "/trxmgr/it"
	cfg.Cluster.LeaseTTL = 5

	membership, err := cluster.NewMembership(cfg.Cluster)
	require.NoError(t, err)
	t.Cleanup(func() { _ = membership.Close() })

	tracker := cluster.NewRebootTracker()
	require.NoError(t, membership.Sync(ctx, tracker))

	factory, err := state.NewFactory(64)
	require.NoError(t, err)
	issuer := lease.NewIssuer()
	registry, err := transaction.New(cfg.Registry, factory,
		transaction.WithServerID(id),
		transaction.WithIssuer(issuer),
		transaction.WithRebootTracker(tracker),
		transaction.WithFanout(cluster.NewHTTPFanout(id, tracker, issuer)),
	)
	require.NoError(t, err)

	srv, err := admin.New(registry, nil)
	require.NoError(t, err)
	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)

	rebootID, err := membership.NextRebootID(ctx, id)
	require.NoError(t, err)
	require.NoError(t, membership.Register(ctx, cluster.Peer{ServerID: id, RebootID: rebootID, Address: server.URL}))

	return &coordinator{id: id, registry: registry, membership: membership, tracker: tracker, server: server}
}

func TestFailoverAbortsOrphanedTransactions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	leader := startCoordinator(t, ctx, "CRDN-A")
	follower := startCoordinator(t, ctx, "CRDN-B")

	// the follower learns the incarnation of the leader through etcd
	var peer cluster.Peer
	require.Eventually(t, func() bool {
		var ok bool
		peer, ok = follower.tracker.Lookup(leader.id)
		return ok
	}, 10*time.Second, 100*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := leader.tracker.Lookup(follower.id)
		return ok
	}, 10*time.Second, 100*time.Millisecond)

	opts := &proto.TransactionOptions{
		User:             "root",
		WriteCollections: []string{"orders"},
		IsFollower:       true,
		Origin:           &proto.PeerOrigin{ServerID: peer.ServerID, RebootID: peer.RebootID},
	}
	require.NoError(t, follower.registry.EnsureManagedTrx(ctx, 9001, "db", opts))

	infos, err := leader.registry.Snapshot(ctx, "db", "", true, false)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, follower.id, infos[0].Server)
	assert.Equal(t, proto.TransactionID(9001), infos[0].ID)

	require.NoError(t, leader.membership.Unregister(ctx))
	assert.Eventually(t, func() bool {
		return follower.registry.GetManagedTrxStatus(9001, "db") == proto.StatusAborted
	}, 10*time.Second, 100*time.Millisecond)
}
