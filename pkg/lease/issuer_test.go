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

package lease

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/arana-db/trxmgr/pkg/util/log"
)

func TestIssuer_Monotonic(t *testing.T) {
	issuer := NewIssuer()
	assert.Equal(t, ID(0), issuer.Last())

	prev := issuer.Issue(Peer{ServerID: "PRMR-1"})
	for i := 0; i < 100; i++ {
		next := issuer.Issue(Peer{ServerID: "PRMR-1", Resource: "log/17"})
		assert.Greater(t, uint64(next), uint64(prev))
		prev = next
	}
	assert.Equal(t, prev, issuer.Last())
}

func TestIssuer_ConcurrentDistinct(t *testing.T) {
	const (
		workers = 16
		perG    = 500
	)

	var (
		issuer = NewIssuer()
		mu     sync.Mutex
		seen   = make(map[ID]struct{}, workers*perG)
		wg     sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]ID, 0, perG)
			for i := 0; i < perG; i++ {
				local = append(local, issuer.Issue(Peer{}))
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perG)
	assert.Equal(t, ID(workers*perG), issuer.Last())
}

func TestPeer_String(t *testing.T) {
	assert.Equal(t, "CRDN-1", Peer{ServerID: "CRDN-1"}.String())
	assert.Equal(t, "CRDN-1/trx/42", Peer{ServerID: "CRDN-1", Resource: "trx/42"}.String())
	assert.Equal(t, "lease-7", ID(7).String())
}

func TestIssuer_LogsPeer(t *testing.T) {
	dir := t.TempDir()
	log.Init(&log.LoggingConfig{
		LogName:    "main.log",
		LogPath:    dir,
		LogLevel:   int(log.DebugLevel),
		LogMaxSize: 1,
		TxLogName:  "tx.log",
		GCLogName:  "gc.log",
	})
	defer log.Init(&log.LoggingConfig{LogLevel: int(log.InfoLevel)})

	id := NewIssuer().Issue(Peer{ServerID: "PRMR-2", Resource: "trx/9"})
	assert.Equal(t, ID(1), id)

	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "issued lease-1 for PRMR-2/trx/9")
}
