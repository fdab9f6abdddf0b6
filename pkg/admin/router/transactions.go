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

package router

import (
	"net/http"
)

import (
	"github.com/gin-gonic/gin"

	"github.com/pkg/errors"

	"github.com/spf13/cast"
)

import (
	"github.com/arana-db/trxmgr/pkg/admin"
	"github.com/arana-db/trxmgr/pkg/admin/exception"
	"github.com/arana-db/trxmgr/pkg/cluster"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/transaction"
)

func init() {
	admin.Register(func(router admin.Router) {
		router.GET(cluster.TransactionsPath, ListTransactions)
		router.POST(cluster.TransactionsPath+"/begin", BeginTransaction)
		router.POST(cluster.TransactionsPath+"/:id", EnsureTransaction)
		router.GET(cluster.TransactionsPath+"/:id", GetTransactionStatus)
		router.PUT(cluster.TransactionsPath+"/:id", CommitTransaction)
		router.DELETE(cluster.TransactionsPath+"/:id", AbortTransaction)
		router.DELETE(cluster.AbortWriteTrxPath, AbortWriteTransactions)
	})
}

// BeginRequest describes a managed transaction to start.
type BeginRequest struct {
	Database    string `json:"database" binding:"required"`
	User        string `json:"user"`
	AccessMode  string `json:"access_mode"`
	Collections struct {
		Read      []string `json:"read"`
		Write     []string `json:"write"`
		Exclusive []string `json:"exclusive"`
	} `json:"collections"`
	// TTL accepts a duration such as "30s"; empty selects the configured default.
	TTL                      string            `json:"ttl"`
	IsFollower               bool              `json:"is_follower"`
	Context                  string            `json:"context"`
	Origin                   *proto.PeerOrigin `json:"origin"`
	IntermediateCommits      bool              `json:"intermediate_commits"`
	AllowImplicitCollections bool              `json:"allow_implicit_collections"`
}

// StatusResponse is returned by the single transaction endpoints.
type StatusResponse struct {
	ID     proto.TransactionID `json:"id"`
	Status proto.Status        `json:"status"`
}

func (br *BeginRequest) options() (*proto.TransactionOptions, error) {
	if !validateNormalName(br.Database) {
		return nil, exception.New(exception.CodeInvalidParams, "invalid database name '%s'", br.Database)
	}
	for _, names := range [][]string{br.Collections.Read, br.Collections.Write, br.Collections.Exclusive} {
		if err := validateNames("collection", names); err != nil {
			return nil, exception.Wrap(exception.CodeInvalidParams, err)
		}
	}

	mode, err := proto.ParseAccessMode(br.AccessMode)
	if err != nil {
		return nil, exception.Wrap(exception.CodeInvalidParams, err)
	}

	opts := &proto.TransactionOptions{
		User:                 br.User,
		AccessMode:           mode,
		ReadCollections:      br.Collections.Read,
		WriteCollections:     br.Collections.Write,
		ExclusiveCollections: br.Collections.Exclusive,
		IsFollower:           br.IsFollower,
		Context:              br.Context,
		Origin:               br.Origin,
	}
	if len(br.TTL) > 0 {
		if opts.TTL, err = cast.ToDurationE(br.TTL); err != nil || opts.TTL <= 0 {
			return nil, exception.New(exception.CodeInvalidParams, "invalid ttl '%s'", br.TTL)
		}
	}
	if br.IntermediateCommits {
		opts.Hints |= proto.HintIntermediateCommits
	}
	if br.AllowImplicitCollections {
		opts.Hints |= proto.HintAllowImplicitCollections
	}
	return opts, nil
}

func bindBegin(c *gin.Context) (string, *proto.TransactionOptions, error) {
	var req BeginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", nil, exception.Wrap(exception.CodeInvalidParams, err)
	}
	opts, err := req.options()
	if err != nil {
		return "", nil, err
	}
	return req.Database, opts, nil
}

func BeginTransaction(c *gin.Context) error {
	database, opts, err := bindBegin(c)
	if err != nil {
		return err
	}

	id, err := admin.GetService(c).CreateManagedTrx(c.Request.Context(), database, opts)
	if err != nil {
		return err
	}
	c.JSON(http.StatusCreated, StatusResponse{ID: id, Status: proto.StatusRunning})
	return nil
}

// EnsureTransaction registers a transaction whose id was chosen elsewhere, or confirms it exists.
func EnsureTransaction(c *gin.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	database, opts, err := bindBegin(c)
	if err != nil {
		return err
	}

	if err = admin.GetService(c).EnsureManagedTrx(c.Request.Context(), id, database, opts); err != nil {
		return err
	}
	c.JSON(http.StatusOK, StatusResponse{ID: id, Status: proto.StatusRunning})
	return nil
}

func GetTransactionStatus(c *gin.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	status := admin.GetService(c).GetManagedTrxStatus(id, c.Query("database"))
	if status == proto.StatusUndefined {
		return errors.Wrapf(transaction.ErrNotFound, "transaction %d", id)
	}
	c.JSON(http.StatusOK, StatusResponse{ID: id, Status: status})
	return nil
}

func CommitTransaction(c *gin.Context) error {
	return finish(c, proto.StatusCommitted)
}

func AbortTransaction(c *gin.Context) error {
	return finish(c, proto.StatusAborted)
}

func finish(c *gin.Context, want proto.Status) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var (
		svc      = admin.GetService(c)
		database = c.Query("database")
		status   proto.Status
	)
	if want == proto.StatusCommitted {
		status, err = svc.CommitManagedTrx(c.Request.Context(), id, database)
	} else {
		status, err = svc.AbortManagedTrx(c.Request.Context(), id, database)
	}
	if err != nil {
		return err
	}
	if status != want {
		return &transaction.AlreadyFinalizedError{ID: id, Status: status}
	}
	c.JSON(http.StatusOK, StatusResponse{ID: id, Status: status})
	return nil
}

func ListTransactions(c *gin.Context) error {
	details, err := queryBool(c, "details", false)
	if err != nil {
		return err
	}
	fanout, err := queryBool(c, "fanout", false)
	if err != nil {
		return err
	}

	infos, err := admin.GetService(c).Snapshot(c.Request.Context(), c.Query("database"), c.Query("user"), fanout, details)
	if err != nil {
		return err
	}
	if infos == nil {
		infos = []proto.TransactionInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": infos})
	return nil
}

func AbortWriteTransactions(c *gin.Context) error {
	fanout, err := queryBool(c, "fanout", true)
	if err != nil {
		return err
	}
	if err = admin.GetService(c).AbortAllManagedWriteTrx(c.Request.Context(), c.Query("user"), fanout); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}
