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
)

import (
	perrors "github.com/pkg/errors"

	"golang.org/x/exp/slices"
)

import (
	"github.com/arana-db/trxmgr/pkg/proto"
)

// Snapshot lists the tracked transactions of database and user; empty
// filters match everything. Tombstones are listed only with details.
func (r *Registry) Snapshot(ctx context.Context, database, user string, fanout, details bool) ([]proto.TransactionInfo, error) {
	var entries []*managedTrx
	for _, b := range r.buckets {
		b.mu.RLock()
		for _, e := range b.trxs {
			if !e.inDatabase(database) {
				continue
			}
			if len(user) > 0 && e.user != user {
				continue
			}
			entries = append(entries, e)
		}
		b.mu.RUnlock()
	}

	now := r.now()
	infos := make([]proto.TransactionInfo, 0, len(entries))
	for _, e := range entries {
		info := e.info(now, r.serverID, details)
		if info.Kind == proto.KindTombstone && !details {
			continue
		}
		infos = append(infos, info)
	}

	if fanout && r.fanout != nil {
		remote, err := r.fanout.ListTransactions(ctx, database, user, details)
		if err != nil {
			return nil, perrors.Wrap(err, "failed to list transactions of other coordinators")
		}
		infos = append(infos, remote...)
	}

	slices.SortFunc(infos, func(a, b proto.TransactionInfo) bool {
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Server < b.Server
	})
	return infos, nil
}

// WriteTo feeds the Snapshot rows into sink.
func (r *Registry) WriteTo(ctx context.Context, sink proto.TransactionSink, database, user string, fanout, details bool) error {
	infos, err := r.Snapshot(ctx, database, user, fanout, details)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err = sink.Add(info); err != nil {
			return perrors.WithStack(err)
		}
	}
	return nil
}
