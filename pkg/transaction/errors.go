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
	"fmt"
)

import (
	perrors "github.com/pkg/errors"
)

import (
	"github.com/arana-db/trxmgr/pkg/proto"
)

var (
	ErrNotFound            = perrors.New("transaction not found")
	ErrDuplicateID         = perrors.New("transaction id already in use")
	ErrBusy                = perrors.New("transaction is in use by side users")
	ErrStatusChangeTimeout = perrors.New("timed out waiting for transaction status change")
	ErrShuttingDown        = perrors.New("server is shutting down")
	ErrOptionsConflict     = perrors.New("transaction options conflict with the existing transaction")
	ErrDisallowedOperation = perrors.New("operation not allowed on this transaction")

	errNotExpired = perrors.New("transaction not expired")
)

// AlreadyFinalizedError is returned when a finalized transaction is leased
// or ensured again. It carries the decided outcome.
type AlreadyFinalizedError struct {
	ID     proto.TransactionID
	Status proto.Status
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("transaction %d is already %s", e.ID, e.Status)
}

// FinalStatus extracts the decided outcome from an AlreadyFinalizedError.
func FinalStatus(err error) (proto.Status, bool) {
	var af *AlreadyFinalizedError
	if perrors.As(err, &af) {
		return af.Status, true
	}
	return proto.StatusUndefined, false
}
