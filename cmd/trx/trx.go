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

// Package trx implements the client commands talking to the admin API of a coordinator.
package trx

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

import (
	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/tidwall/gjson"
)

import (
	"github.com/arana-db/trxmgr/cmd/cmds"
	"github.com/arana-db/trxmgr/pkg/cluster"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/util/tableprint"
)

const (
	_keyServer   = "server"
	_keyDatabase = "database"
	_keyUser     = "user"
	_keyDetails  = "details"
	_keyFanout   = "fanout"
	_keyNoColor  = "no-color"
)

var _client = &http.Client{Timeout: 30 * time.Second}

func init() {
	root := &cobra.Command{
		Use:   "trx",
		Short: "inspect and finish managed transactions",
	}
	root.PersistentFlags().String(_keyServer, "http://127.0.0.1:8529", "admin address of the coordinator")
	root.PersistentFlags().String(_keyDatabase, "", "database of the transactions")

	list := &cobra.Command{
		Use:     "list",
		Short:   "list the managed transactions",
		Example: "trxmgr trx list --database orders --details",
		RunE:    runList,
	}
	list.Flags().String(_keyUser, "", "only list transactions of this user")
	list.Flags().Bool(_keyDetails, false, "include finished transactions")
	list.Flags().Bool(_keyFanout, true, "include the transactions of the other coordinators")
	list.Flags().Bool(_keyNoColor, false, "disable colors")

	commit := &cobra.Command{
		Use:     "commit ID",
		Short:   "commit a managed transaction",
		Example: "trxmgr trx commit 170312 --database orders",
		Args:    cobra.ExactArgs(1),
		RunE:    finisher(http.MethodPut),
	}
	abort := &cobra.Command{
		Use:     "abort ID",
		Short:   "abort a managed transaction",
		Example: "trxmgr trx abort 170312 --database orders",
		Args:    cobra.ExactArgs(1),
		RunE:    finisher(http.MethodDelete),
	}

	root.AddCommand(list, commit, abort)
	cmds.Handle(func(r *cobra.Command) {
		r.AddCommand(root)
	})
}

func runList(cmd *cobra.Command, _ []string) error {
	var (
		server, _   = cmd.Flags().GetString(_keyServer)
		database, _ = cmd.Flags().GetString(_keyDatabase)
		user, _     = cmd.Flags().GetString(_keyUser)
		details, _  = cmd.Flags().GetBool(_keyDetails)
		fanout, _   = cmd.Flags().GetBool(_keyFanout)
		noColor, _  = cmd.Flags().GetBool(_keyNoColor)
	)

	q := url.Values{}
	q.Set("database", database)
	q.Set("user", user)
	q.Set("details", fmt.Sprint(details))
	q.Set("fanout", fmt.Sprint(fanout))

	body, err := call(http.MethodGet, server, cluster.TransactionsPath, q)
	if err != nil {
		return err
	}
	infos, err := cluster.ParseTransactions(body, "")
	if err != nil {
		return err
	}
	return List(cmd.OutOrStdout(), infos, !noColor)
}

// List renders infos as a table.
func List(w io.Writer, infos []proto.TransactionInfo, color bool) error {
	table := tableprint.NewTransactionTable(w, color)
	for _, info := range infos {
		if err := table.Add(info); err != nil {
			return err
		}
	}
	table.Render()
	_, err := fmt.Fprintf(w, "%d transaction(s)\n", len(infos))
	return err
}

func finisher(method string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := proto.ParseTransactionID(args[0])
		if err != nil {
			return err
		}
		server, _ := cmd.Flags().GetString(_keyServer)
		database, _ := cmd.Flags().GetString(_keyDatabase)

		q := url.Values{}
		q.Set("database", database)
		body, err := call(method, server, fmt.Sprintf("%s/%d", cluster.TransactionsPath, id), q)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "transaction %d is %s\n", id, gjson.GetBytes(body, "status").String())
		return err
	}
}

func call(method, server, path string, q url.Values) ([]byte, error) {
	u := strings.TrimSuffix(server, "/") + path + "?" + q.Encode()
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if token := os.Getenv("TRXMGR_TOKEN"); len(token) > 0 {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := _client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, u)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if resp.StatusCode/100 != 2 {
		msg := gjson.GetBytes(body, "error").String()
		if len(msg) == 0 {
			msg = resp.Status
		}
		return nil, errors.Errorf("%s %s: %s", method, path, msg)
	}
	return body, nil
}
