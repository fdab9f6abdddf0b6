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

package gtid

import (
	"sync"
)

import (
	"github.com/bwmarrin/snowflake"

	"github.com/cespare/xxhash/v2"

	perrors "github.com/pkg/errors"
)

import (
	"github.com/arana-db/trxmgr/pkg/util/identity"
)

const _maxNode = 1 << 10

var (
	nodeId     string
	once       sync.Once
	seqBuilder *snowflake.Node
)

// Generator allocates globally unique transaction ids.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a Generator for the given snowflake node number.
func NewGenerator(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node % _maxNode)
	if err != nil {
		return nil, perrors.Wrapf(err, "cannot create id generator for node %d", node)
	}
	return &Generator{node: n}, nil
}

// NewGeneratorFor derives the snowflake node number from a coordinator identity.
func NewGeneratorFor(identity string) (*Generator, error) {
	return NewGenerator(NodeNumber(identity))
}

// Next returns the next id. Ids are positive and increase within one generator.
func (g *Generator) Next() uint64 {
	return uint64(g.node.Generate().Int64())
}

// NodeNumber maps an identity onto the snowflake node range.
func NodeNumber(identity string) int64 {
	return int64(xxhash.Sum64String(identity) % _maxNode)
}

// NewID generates the next id of the process-wide generator bound to this node's identity.
func NewID() uint64 {
	once.Do(func() {
		nodeId = identity.GetNodeIdentity()
		seqBuilder, _ = snowflake.NewNode(NodeNumber(nodeId))
	})
	return uint64(seqBuilder.Generate().Int64())
}
