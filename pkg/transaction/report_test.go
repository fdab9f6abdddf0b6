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
	"testing"
	"time"
)

import (
	"github.com/golang/mock/gomock"

	"github.com/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/testdata"
)

type sliceSink struct {
	rows  []proto.TransactionInfo
	limit int
}

func (s *sliceSink) Add(info proto.TransactionInfo) error {
	if s.limit > 0 && len(s.rows) == s.limit {
		return errors.New("sink is full")
	}
	s.rows = append(s.rows, info)
	return nil
}

func TestSnapshot(t *testing.T) {
	r, clock, _ := newTestRegistry(t, nil)
	ctx := context.Background()

	opts := writeOpts("alice")
	opts.Context = "import job"
	require.NoError(t, r.EnsureManagedTrx(ctx, 72, "db1", opts))
	require.NoError(t, r.EnsureManagedTrx(ctx, 71, "db1", writeOpts("bob")))
	require.NoError(t, r.EnsureManagedTrx(ctx, 73, "db2", writeOpts("alice")))
	_, err := r.CommitManagedTrx(ctx, 71, "db1")
	require.NoError(t, err)
	clock.Advance(4 * time.Second)

	infos, err := r.Snapshot(ctx, "db1", "", false, false)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, proto.TransactionID(72), infos[0].ID)
	assert.Equal(t, proto.StatusRunning, infos[0].Status)
	assert.Equal(t, "CRDN-test", infos[0].Server)
	assert.Empty(t, infos[0].Context)

	infos, err = r.Snapshot(ctx, "db1", "", false, true)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, proto.TransactionID(71), infos[0].ID)
	assert.Equal(t, proto.KindTombstone, infos[0].Kind)
	assert.Equal(t, proto.StatusCommitted, infos[0].Status)
	assert.Equal(t, "import job", infos[1].Context)
	assert.Equal(t, 6*time.Second, infos[1].TTLRemaining)

	infos, err = r.Snapshot(ctx, "", "alice", false, false)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, proto.TransactionID(72), infos[0].ID)
	assert.Equal(t, proto.TransactionID(73), infos[1].ID)
}

func TestSnapshotFanout(t *testing.T) {
	ctrl := gomock.NewController(t)
	fanout := testdata.NewMockClusterFanout(ctrl)
	fanout.EXPECT().
		ListTransactions(gomock.Any(), "db", "", false).
		Return([]proto.TransactionInfo{{ID: 1, Database: "db", Status: proto.StatusRunning, Server: "CRDN-2"}}, nil)
	fanout.EXPECT().
		ListTransactions(gomock.Any(), "db", "", false).
		Return(nil, errors.New("peer unreachable"))

	r, _, _ := newTestRegistry(t, nil, WithFanout(fanout))
	ctx := context.Background()
	require.NoError(t, r.EnsureManagedTrx(ctx, 80, "db", writeOpts("root")))

	infos, err := r.Snapshot(ctx, "db", "", true, false)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "CRDN-2", infos[0].Server)
	assert.Equal(t, proto.TransactionID(80), infos[1].ID)

	_, err = r.Snapshot(ctx, "db", "", true, false)
	assert.Error(t, err)
}

func TestWriteTo(t *testing.T) {
	r, _, _ := newTestRegistry(t, nil)
	ctx := context.Background()
	require.NoError(t, r.EnsureManagedTrx(ctx, 90, "db", writeOpts("root")))
	require.NoError(t, r.EnsureManagedTrx(ctx, 91, "db", writeOpts("root")))

	sink := &sliceSink{}
	require.NoError(t, r.WriteTo(ctx, sink, "db", "", false, false))
	assert.Len(t, sink.rows, 2)

	assert.Error(t, r.WriteTo(ctx, &sliceSink{limit: 1}, "db", "", false, false))
}
