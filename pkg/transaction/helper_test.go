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
	"testing"
	"time"
)

import (
	"github.com/golang/mock/gomock"

	"github.com/stretchr/testify/require"

	uatomic "go.uber.org/atomic"
)

import (
	"github.com/arana-db/trxmgr/pkg/config"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/testdata"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeState struct {
	id      proto.TransactionID
	db      string
	user    string
	hints   uatomic.Uint32
	commits uatomic.Int32
	aborts  uatomic.Int32

	commitErr    uatomic.Error
	intermediate uatomic.Bool
	// commitGate, when set, blocks Commit until closed.
	commitGate    chan struct{}
	commitStarted chan struct{}
}

func (s *fakeState) Begin(_ context.Context, hints proto.Hints) error {
	s.hints.Store(uint32(hints))
	return nil
}

func (s *fakeState) Commit(_ context.Context) error {
	if s.commitStarted != nil {
		close(s.commitStarted)
	}
	if s.commitGate != nil {
		<-s.commitGate
	}
	if err := s.commitErr.Load(); err != nil {
		return err
	}
	s.commits.Inc()
	return nil
}

func (s *fakeState) Abort(_ context.Context) error {
	s.aborts.Inc()
	return nil
}

func (s *fakeState) Database() string { return s.db }

func (s *fakeState) User() string { return s.user }

func (s *fakeState) HadIntermediateCommits() bool { return s.intermediate.Load() }

func (s *fakeState) finalizations() int32 {
	return s.commits.Load() + s.aborts.Load()
}

type stateBook struct {
	mu     sync.Mutex
	states map[proto.TransactionID]*fakeState
}

func (b *stateBook) create(id proto.TransactionID, db, user string) *fakeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &fakeState{id: id, db: db, user: user}
	b.states[id] = s
	return s
}

func (b *stateBook) get(id proto.TransactionID) *fakeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[id]
}

func testConfig() *config.Registry {
	return &config.Registry{
		Buckets:              16,
		IdleTTL:              10 * time.Second,
		FollowerTTL:          3 * time.Minute,
		TombstoneTTL:         10 * time.Minute,
		StatusChangeTimeout:  200 * time.Millisecond,
		StatusChangeInterval: 5 * time.Millisecond,
		GCInterval:           time.Second,
	}
}

func newTestRegistry(t *testing.T, cfg *config.Registry, opts ...Option) (*Registry, *fakeClock, *stateBook) {
	ctrl := gomock.NewController(t)
	book := &stateBook{states: make(map[proto.TransactionID]*fakeState)}

	factory := testdata.NewMockStateFactory(ctrl)
	factory.EXPECT().
		NewState(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id proto.TransactionID, db string, opts *proto.TransactionOptions) (proto.TransactionState, error) {
			return book.create(id, db, opts.User), nil
		}).
		AnyTimes()

	clock := newFakeClock()
	seq := uatomic.NewUint64(100)
	all := append([]Option{
		WithClock(clock.Now),
		WithIDGenerator(seq.Inc),
		WithServerID("CRDN-test"),
	}, opts...)

	if cfg == nil {
		cfg = testConfig()
	}
	r, err := New(cfg, factory, all...)
	require.NoError(t, err)
	return r, clock, book
}

func writeOpts(user string) *proto.TransactionOptions {
	return &proto.TransactionOptions{User: user, AccessMode: proto.AccessWrite, WriteCollections: []string{"c"}}
}

func readOpts(user string) *proto.TransactionOptions {
	return &proto.TransactionOptions{User: user, AccessMode: proto.AccessRead, ReadCollections: []string{"c"}}
}
