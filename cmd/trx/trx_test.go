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

package trx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/arana-db/trxmgr/pkg/cluster"
)

func TestCallAndList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case cluster.TransactionsPath:
			assert.Equal(t, "true", r.URL.Query().Get("fanout"))
			_, _ = w.Write([]byte(`{"transactions":[{"id":5,"database":"db","status":"running","kind":"managed","server":"CRDN-1","ttl_remaining":10000000000}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"transaction 6 not found"}`))
		}
	}))
	defer srv.Close()

	q := url.Values{}
	q.Set("fanout", "true")
	body, err := call(http.MethodGet, srv.URL+"/", cluster.TransactionsPath, q)
	require.NoError(t, err)
	infos, err := cluster.ParseTransactions(body, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, List(&buf, infos, false))
	assert.Contains(t, buf.String(), "CRDN-1")
	assert.Contains(t, buf.String(), "1 transaction(s)")

	_, err = call(http.MethodPut, srv.URL, cluster.TransactionsPath+"/6", url.Values{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction 6 not found")
}
