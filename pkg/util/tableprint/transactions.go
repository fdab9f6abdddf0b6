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
	"fmt"
	"io"
	"strconv"
	"time"
)

import (
	"github.com/docker/go-units"

	"github.com/olekukonko/tablewriter"
)

import (
	"github.com/arana-db/trxmgr/pkg/proto"
)

var _header = []string{"ID", "SERVER", "DATABASE", "USER", "KIND", "STATUS", "TTL", "SIDE USERS", "FLAGS"}

// TransactionTable collects transaction rows and renders them as a table.
type TransactionTable struct {
	w     io.Writer
	color bool
	rows  [][]string
}

var _ proto.TransactionSink = (*TransactionTable)(nil)

func NewTransactionTable(w io.Writer, color bool) *TransactionTable {
	return &TransactionTable{w: w, color: color}
}

func (t *TransactionTable) Add(info proto.TransactionInfo) error {
	t.rows = append(t.rows, []string{
		info.ID.String(),
		info.Server,
		info.Database,
		orNull(info.User),
		info.Kind.String(),
		t.paintStatus(info.Status),
		humanTTL(info.TTLRemaining),
		strconv.Itoa(int(info.SideUsers)),
		flags(info),
	})
	return nil
}

// Len returns the number of rows added so far.
func (t *TransactionTable) Len() int {
	return len(t.rows)
}

// Render writes the table and forgets the rows.
func (t *TransactionTable) Render() {
	header := make([]string, 0, len(_header))
	for _, h := range _header {
		if t.color {
			h = fmt.Sprintf("\033[32m%s\033[0m", h)
		}
		header = append(header, h)
	}

	table := tablewriter.NewWriter(t.w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(t.rows)
	table.Render()
	t.rows = nil
}

func (t *TransactionTable) paintStatus(s proto.Status) string {
	if !t.color {
		return s.String()
	}
	switch s {
	case proto.StatusCommitted:
		return fmt.Sprintf("\033[92m%s\033[0m", s)
	case proto.StatusAborted:
		return fmt.Sprintf("\033[91m%s\033[0m", s)
	default:
		return s.String()
	}
}

func humanTTL(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	return units.HumanDuration(d)
}

func flags(info proto.TransactionInfo) string {
	var s string
	if info.EverExpired {
		s += "E"
	}
	if info.IntermediateCommits {
		s += "I"
	}
	if len(s) == 0 {
		return "-"
	}
	return s
}

func orNull(s string) string {
	if len(s) == 0 {
		return "\\N"
	}
	return s
}
