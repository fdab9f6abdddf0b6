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

// Package state provides a TransactionState which keeps no data. It logs the
// lifecycle of every transaction and remembers recent outcomes, which is what
// a coordinator without an attached storage engine needs.
package state

import (
	"context"
)

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/pkg/errors"

	uatomic "go.uber.org/atomic"
)

import (
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

const DefaultHistorySize = 4096

var (
	_ proto.StateFactory          = (*Factory)(nil)
	_ proto.TransactionState      = (*journalState)(nil)
	_ proto.IntermediateCommitter = (*journalState)(nil)
)

var errNotRunning = errors.New("transaction is not running")

// Factory creates journal states.
type Factory struct {
	history *lru.Cache
}

func NewFactory(historySize int) (*Factory, error) {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	history, err := lru.New(historySize)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Factory{history: history}, nil
}

func (f *Factory) NewState(_ context.Context, id proto.TransactionID, database string, opts *proto.TransactionOptions) (proto.TransactionState, error) {
	if len(database) == 0 {
		return nil, errors.New("no database given")
	}
	return &journalState{
		f:        f,
		id:       id,
		database: database,
		user:     opts.User,
		writes:   !opts.IsReadOnly(),
	}, nil
}

// Outcome returns the status a recently finished transaction ended with.
func (f *Factory) Outcome(id proto.TransactionID) (proto.Status, bool) {
	v, ok := f.history.Get(id)
	if !ok {
		return proto.StatusUndefined, false
	}
	return v.(proto.Status), true
}

type journalState struct {
	f            *Factory
	id           proto.TransactionID
	database     string
	user         string
	writes       bool
	intermediate bool
	status       uatomic.Uint32
}

func (s *journalState) Begin(_ context.Context, hints proto.Hints) error {
	if !s.status.CAS(uint32(proto.StatusUndefined), uint32(proto.StatusRunning)) {
		return errors.Errorf("transaction %d was started already", s.id)
	}
	s.intermediate = s.writes && hints&proto.HintIntermediateCommits != 0
	log.DebugfWithLogType(log.TxLog, "begin transaction %d in database '%s' with hints %#x", s.id, s.database, uint32(hints))
	return nil
}

func (s *journalState) Commit(_ context.Context) error {
	return s.end(proto.StatusCommitted)
}

func (s *journalState) Abort(_ context.Context) error {
	return s.end(proto.StatusAborted)
}

func (s *journalState) end(status proto.Status) error {
	if !s.status.CAS(uint32(proto.StatusRunning), uint32(status)) {
		return errors.Wrapf(errNotRunning, "cannot %s transaction %d", verb(status), s.id)
	}
	s.f.history.Add(s.id, status)
	log.DebugfWithLogType(log.TxLog, "transaction %d in database '%s' %s", s.id, s.database, status)
	return nil
}

func (s *journalState) Database() string {
	return s.database
}

func (s *journalState) User() string {
	return s.user
}

// HadIntermediateCommits is true for writing transactions started with intermediate commits enabled.
func (s *journalState) HadIntermediateCommits() bool {
	return s.intermediate
}

func verb(status proto.Status) string {
	if status == proto.StatusCommitted {
		return "commit"
	}
	return "abort"
}
