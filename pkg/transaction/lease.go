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
	uatomic "go.uber.org/atomic"
)

import (
	"github.com/arana-db/trxmgr/pkg/lease"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

// TransactionLease grants access to the state of a leased managed transaction.
// Release must be called exactly when the caller is done, usually via defer;
// further calls are no-ops.
type TransactionLease struct {
	id          lease.ID
	trx         proto.TransactionID
	mode        proto.AccessMode
	state       proto.TransactionState
	entry       *managedTrx
	sideUser    bool
	responsible bool
	released    uatomic.Bool
}

func (l *TransactionLease) ID() lease.ID {
	return l.id
}

func (l *TransactionLease) TransactionID() proto.TransactionID {
	return l.trx
}

func (l *TransactionLease) AccessMode() proto.AccessMode {
	return l.mode
}

// State returns the underlying transaction state. It must not be used after Release.
func (l *TransactionLease) State() proto.TransactionState {
	return l.state
}

func (l *TransactionLease) IsSideUser() bool {
	return l.sideUser
}

// IsResponsibleForCommit is true for the first plain lease of an entry.
func (l *TransactionLease) IsResponsibleForCommit() bool {
	return l.responsible
}

// Release returns the lease. It takes no registry or entry lock.
func (l *TransactionLease) Release() {
	if !l.released.CAS(false, true) {
		return
	}
	if l.sideUser {
		l.entry.returnSideUser()
	}
	log.Debugf("%s on transaction %d released", l.id, l.trx)
}

// RunningCounter counts one transaction in the registry's live counter until released.
type RunningCounter struct {
	id       proto.TransactionID
	counter  *uatomic.Int64
	released uatomic.Bool
}

func (c *RunningCounter) TransactionID() proto.TransactionID {
	return c.id
}

func (c *RunningCounter) Release() {
	if c.released.CAS(false, true) {
		c.counter.Dec()
	}
}
