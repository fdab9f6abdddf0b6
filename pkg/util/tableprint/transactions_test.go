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

package tableprint

import (
	"bytes"
	"testing"
	"time"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/arana-db/trxmgr/pkg/proto"
)

func TestTransactionTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTransactionTable(&buf, false)

	require.NoError(t, table.Add(proto.TransactionInfo{
		ID:           42,
		Database:     "db",
		User:         "root",
		Status:       proto.StatusRunning,
		Kind:         proto.KindManaged,
		Server:       "CRDN-1",
		TTLRemaining: 90 * time.Second,
		SideUsers:    2,
	}))
	require.NoError(t, table.Add(proto.TransactionInfo{
		ID:                  43,
		Database:            "db",
		Status:              proto.StatusAborted,
		Kind:                proto.KindTombstone,
		Server:              "CRDN-2",
		EverExpired:         true,
		IntermediateCommits: true,
	}))
	assert.Equal(t, 2, table.Len())

	table.Render()
	out := buf.String()
	assert.Contains(t, out, "SIDE USERS")
	assert.Contains(t, out, "CRDN-1")
	assert.Contains(t, out, "About a minute")
	assert.Contains(t, out, "tombstone")
	assert.Contains(t, out, "expired")
	assert.Contains(t, out, "EI")
	assert.Contains(t, out, "\\N")
	assert.Equal(t, 0, table.Len())
}
