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
	"time"
)

import (
	"github.com/gin-gonic/gin"
)

import (
	"github.com/arana-db/trxmgr/pkg/admin"
	"github.com/arana-db/trxmgr/pkg/admin/exception"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

const _defaultHoldTimeout = 5 * time.Second

func init() {
	admin.RegisterSecured(func(router admin.Router) {
		router.POST("/_admin/hold", HoldTransactions)
		router.POST("/_admin/release", ReleaseTransactions)
		router.POST("/_admin/gc", GarbageCollect)
		router.GET("/_admin/stats", GetStats)
	})
}

// HoldTransactions blocks new commits and aborts, for example while a backup is taken.
func HoldTransactions(c *gin.Context) error {
	timeout, err := queryDuration(c, "timeout", _defaultHoldTimeout)
	if err != nil {
		return err
	}
	held := admin.GetService(c).HoldTransactions(timeout)
	log.Infof("operator '%s' requested to hold transactions: held=%v", admin.Identity(c), held)
	if !held {
		return exception.New(exception.CodeHoldTimeout, "no hold within %s, commits are still running", timeout)
	}
	c.JSON(http.StatusOK, gin.H{"held": true})
	return nil
}

func ReleaseTransactions(c *gin.Context) error {
	admin.GetService(c).ReleaseTransactions()
	log.Infof("operator '%s' released transactions", admin.Identity(c))
	c.JSON(http.StatusOK, gin.H{"held": false})
	return nil
}

func GarbageCollect(c *gin.Context) error {
	abortAll, err := queryBool(c, "abort_all", false)
	if err != nil {
		return err
	}
	didWork := admin.GetService(c).GarbageCollect(abortAll)
	c.JSON(http.StatusOK, gin.H{"did_work": didWork})
	return nil
}

func GetStats(c *gin.Context) error {
	c.JSON(http.StatusOK, admin.GetService(c).Stats())
	return nil
}
