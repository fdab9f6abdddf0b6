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

// Package lease issues the identifiers used to correlate a request sent to a peer
// with the transaction or resource it was issued against.
package lease

import (
	"fmt"
)

import (
	"go.uber.org/atomic"
)

import (
	"github.com/arana-db/trxmgr/pkg/util/log"
)

// ID identifies one lease. Ids are unique within the lifetime of one Issuer only.
type ID uint64

func (id ID) String() string {
	return fmt.Sprintf("lease-%d", uint64(id))
}

// Peer describes the target of a lease. It is carried for diagnostics only.
type Peer struct {
	ServerID string
	Resource string
}

func (p Peer) String() string {
	if len(p.Resource) == 0 {
		return p.ServerID
	}
	return p.ServerID + "/" + p.Resource
}

// Issuer hands out strictly increasing lease ids.
type Issuer struct {
	last atomic.Uint64
}

func NewIssuer() *Issuer {
	return &Issuer{}
}

// Issue returns the next lease id for the given peer.
func (i *Issuer) Issue(peer Peer) ID {
	id := ID(i.last.Inc())
	log.Debugf("issued %s for %s", id, peer)
	return id
}

// Last returns the most recently issued id, or 0 if none was issued yet.
func (i *Issuer) Last() ID {
	return ID(i.last.Load())
}
