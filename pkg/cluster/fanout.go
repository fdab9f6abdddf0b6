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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

import (
	"github.com/pkg/errors"

	"github.com/tidwall/gjson"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"golang.org/x/sync/errgroup"
)

import (
	"github.com/arana-db/trxmgr/pkg/constants"
	"github.com/arana-db/trxmgr/pkg/lease"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

const (
	LeaseHeader = "X-Trxmgr-Lease"

	TransactionsPath     = "/_api/transaction"
	AbortWriteTrxPath    = "/_admin/transactions/write"
	defaultFanoutTimeout = 10 * time.Second
)

// PeerSource lists the coordinators to fan out to.
type PeerSource interface {
	Peers() []Peer
}

// HTTPFanout implements proto.ClusterFanout against the admin API of the other coordinators.
type HTTPFanout struct {
	self   string
	peers  PeerSource
	issuer *lease.Issuer
	client *http.Client
}

func NewHTTPFanout(self string, peers PeerSource, issuer *lease.Issuer) *HTTPFanout {
	return &HTTPFanout{
		self:   self,
		peers:  peers,
		issuer: issuer,
		client: &http.Client{Timeout: defaultFanoutTimeout},
	}
}

func (f *HTTPFanout) others() []Peer {
	var others []Peer
	for _, p := range f.peers.Peers() {
		if p.ServerID == f.self || len(p.Address) == 0 {
			continue
		}
		if !Compatible(constants.Version, p.Version) {
			log.Warnf("skip coordinator %s: version %s is incompatible with %s", p.ServerID, p.Version, constants.Version)
			continue
		}
		others = append(others, p)
	}
	return others
}

func (f *HTTPFanout) AbortAllManagedWriteTrx(ctx context.Context, user string) error {
	q := url.Values{}
	q.Set("user", user)
	q.Set("fanout", "false")

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range f.others() {
		p := p
		g.Go(func() error {
			_, err := f.call(ctx, p, http.MethodDelete, AbortWriteTrxPath, q, "abort-write")
			return err
		})
	}
	return g.Wait()
}

func (f *HTTPFanout) ListTransactions(ctx context.Context, database, user string, details bool) ([]proto.TransactionInfo, error) {
	q := url.Values{}
	q.Set("database", database)
	q.Set("user", user)
	q.Set("details", fmt.Sprint(details))
	q.Set("fanout", "false")

	var (
		mu  sync.Mutex
		all []proto.TransactionInfo
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range f.others() {
		p := p
		g.Go(func() error {
			body, err := f.call(ctx, p, http.MethodGet, TransactionsPath, q, "list")
			if err != nil {
				return err
			}
			infos, err := ParseTransactions(body, p.ServerID)
			if err != nil {
				return errors.Wrapf(err, "coordinator %s", p.ServerID)
			}
			mu.Lock()
			all = append(all, infos...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

func (f *HTTPFanout) call(ctx context.Context, p Peer, method, path string, q url.Values, resource string) ([]byte, error) {
	u := strings.TrimSuffix(p.Address, "/") + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	id := f.issuer.Issue(lease.Peer{ServerID: p.ServerID, Resource: resource})
	req.Header.Set(LeaseHeader, id.String())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s on coordinator %s", method, path, p.ServerID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if resp.StatusCode/100 != 2 {
		msg := gjson.GetBytes(body, "error").String()
		if len(msg) == 0 {
			msg = resp.Status
		}
		return nil, errors.Errorf("%s %s on coordinator %s failed: %s", method, path, p.ServerID, msg)
	}
	log.Debugf("%s: %s %s on coordinator %s", id, method, path, p.ServerID)
	return body, nil
}

// ParseTransactions decodes the listing returned by the admin API.
func ParseTransactions(body []byte, server string) ([]proto.TransactionInfo, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed transaction listing")
	}
	rows := gjson.GetBytes(body, "transactions").Array()
	infos := make([]proto.TransactionInfo, 0, len(rows))
	for _, row := range rows {
		var status proto.Status
		if err := status.UnmarshalText([]byte(row.Get("status").String())); err != nil {
			return nil, err
		}
		info := proto.TransactionInfo{
			ID:                  proto.TransactionID(row.Get("id").Uint()),
			Database:            row.Get("database").String(),
			User:                row.Get("user").String(),
			Status:              status,
			Kind:                parseKind(row.Get("kind").String()),
			Server:              row.Get("server").String(),
			Context:             row.Get("context").String(),
			TTLRemaining:        time.Duration(row.Get("ttl_remaining").Int()),
			SideUsers:           int32(row.Get("side_users").Int()),
			EverExpired:         row.Get("ever_expired").Bool(),
			IntermediateCommits: row.Get("intermediate_commits").Bool(),
		}
		if len(info.Server) == 0 {
			info.Server = server
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func parseKind(s string) proto.Kind {
	switch s {
	case "aql":
		return proto.KindStandaloneAQL
	case "tombstone":
		return proto.KindTombstone
	default:
		return proto.KindManaged
	}
}
