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

//go:generate mockgen -destination=../../testdata/mock_trx.go -package=testdata . TransactionState,StateFactory,CallbackGuard,RebootTracker,ClusterFanout
package proto

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

import (
	"github.com/pkg/errors"
)

// TransactionID identifies a transaction cluster wide. It is assigned by the
// coordinator which starts the transaction.
type TransactionID uint64

func (id TransactionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseTransactionID parses the decimal form produced by String.
func ParseTransactionID(s string) (TransactionID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, errors.Errorf("invalid transaction id '%s'", s)
	}
	return TransactionID(n), nil
}

// AccessMode is the strongest access a transaction or a lease asks for.
type AccessMode uint8

const (
	AccessRead AccessMode = iota
	AccessWrite
	AccessExclusive
)

func (m AccessMode) String() string {
	switch m {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("AccessMode(%d)", uint8(m))
	}
}

// ParseAccessMode parses the form produced by AccessMode.String.
func ParseAccessMode(s string) (AccessMode, error) {
	switch s {
	case "read", "":
		return AccessRead, nil
	case "write":
		return AccessWrite, nil
	case "exclusive":
		return AccessExclusive, nil
	default:
		return AccessRead, errors.Errorf("invalid access mode '%s'", s)
	}
}

// Hints are passed through to TransactionState.Begin.
type Hints uint32

const (
	HintGlobalManaged Hints = 1 << iota
	HintIntermediateCommits
	HintAllowImplicitCollections
	HintIsFollowerTrx
)

// Status is the cluster-visible status of a managed transaction.
type Status uint8

const (
	StatusUndefined Status = iota
	StatusRunning
	StatusCommitted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCommitted:
		return "committed"
	case StatusAborted:
		return "aborted"
	default:
		return "undefined"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "running":
		*s = StatusRunning
	case "committed":
		*s = StatusCommitted
	case "aborted":
		*s = StatusAborted
	case "undefined", "":
		*s = StatusUndefined
	default:
		return errors.Errorf("unknown transaction status '%s'", text)
	}
	return nil
}

// Kind tells how the registry tracks a transaction.
type Kind uint8

const (
	// KindManaged is a multi-statement transaction leased out across requests.
	KindManaged Kind = iota
	// KindStandaloneAQL is owned by a single query and tracked for accounting.
	KindStandaloneAQL
	// KindTombstone marks a finalized transaction kept to answer duplicates.
	KindTombstone
)

func (k Kind) String() string {
	switch k {
	case KindManaged:
		return "managed"
	case KindStandaloneAQL:
		return "aql"
	case KindTombstone:
		return "tombstone"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// PeerOrigin identifies the incarnation of the coordinator that created a transaction.
type PeerOrigin struct {
	ServerID string `json:"server_id"`
	RebootID uint64 `json:"reboot_id"`
}

func (p PeerOrigin) String() string {
	return fmt.Sprintf("%s@%d", p.ServerID, p.RebootID)
}

// TransactionOptions are the typed options a managed transaction is created with.
type TransactionOptions struct {
	User                 string        `json:"user,omitempty"`
	AccessMode           AccessMode    `json:"access_mode"`
	ReadCollections      []string      `json:"read,omitempty"`
	WriteCollections     []string      `json:"write,omitempty"`
	ExclusiveCollections []string      `json:"exclusive,omitempty"`
	TTL                  time.Duration `json:"ttl,omitempty"`
	IsFollower           bool          `json:"is_follower,omitempty"`
	Context              string        `json:"context,omitempty"`
	Origin               *PeerOrigin   `json:"origin,omitempty"`
	Hints                Hints         `json:"hints,omitempty"`
}

// IsReadOnly reports whether no collection is opened for writing.
func (o *TransactionOptions) IsReadOnly() bool {
	return o.AccessMode == AccessRead && len(o.WriteCollections) == 0 && len(o.ExclusiveCollections) == 0
}

// TransactionInfo is one row of the transaction listing.
type TransactionInfo struct {
	ID                  TransactionID `json:"id"`
	Database            string        `json:"database"`
	User                string        `json:"user,omitempty"`
	Status              Status        `json:"status"`
	Kind                Kind          `json:"kind"`
	Server              string        `json:"server,omitempty"`
	Context             string        `json:"context,omitempty"`
	TTLRemaining        time.Duration `json:"ttl_remaining,omitempty"`
	SideUsers           int32         `json:"side_users,omitempty"`
	EverExpired         bool          `json:"ever_expired,omitempty"`
	IntermediateCommits bool          `json:"intermediate_commits,omitempty"`
}

type (
	// TransactionState is the storage engine's transaction object. The registry
	// drives it only through this contract.
	TransactionState interface {
		// Begin starts the transaction.
		Begin(ctx context.Context, hints Hints) error
		// Commit commits the transaction.
		Commit(ctx context.Context) error
		// Abort rolls the transaction back.
		Abort(ctx context.Context) error
		// Database returns the database the transaction runs in.
		Database() string
		// User returns the user who started the transaction.
		User() string
	}

	// IntermediateCommitter is implemented by states which may commit partially.
	IntermediateCommitter interface {
		HadIntermediateCommits() bool
	}

	// StateFactory builds the transaction state for a new managed transaction.
	StateFactory interface {
		NewState(ctx context.Context, id TransactionID, database string, opts *TransactionOptions) (TransactionState, error)
	}

	// CallbackGuard unsubscribes a registered callback. Cancel is idempotent.
	CallbackGuard interface {
		Cancel()
	}

	// RebootTracker watches coordinators and calls back once the given
	// incarnation is gone. Callbacks run on their own goroutine.
	RebootTracker interface {
		CallMeOnChange(peer PeerOrigin, callback func(), description string) (CallbackGuard, error)
	}

	// ClusterFanout repeats registry operations on every other coordinator.
	ClusterFanout interface {
		AbortAllManagedWriteTrx(ctx context.Context, user string) error
		ListTransactions(ctx context.Context, database, user string, details bool) ([]TransactionInfo, error)
	}

	// TransactionSink receives the rows of a listing.
	TransactionSink interface {
		Add(info TransactionInfo) error
	}
)

// ErrAbortRequired may be returned by TransactionState.Commit when the
// transaction cannot be kept open after the failure.
var ErrAbortRequired = errors.New("transaction must be aborted")
