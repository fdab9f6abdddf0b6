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
	"regexp"
	"sync"
	"time"
)

import (
	"github.com/gin-gonic/gin"

	"github.com/pkg/errors"

	"github.com/spf13/cast"
)

import (
	"github.com/arana-db/trxmgr/pkg/admin/exception"
	"github.com/arana-db/trxmgr/pkg/proto"
)

var (
	_normalNameRegexp     *regexp.Regexp
	_normalNameRegexpOnce sync.Once
)

func validateNormalName(name string) bool {
	_normalNameRegexpOnce.Do(func() {
		_normalNameRegexp = regexp.MustCompile("^[_a-zA-Z][0-9a-zA-Z_-]*$")
	})
	return _normalNameRegexp.MatchString(name)
}

func validateNames(kind string, names []string) error {
	for _, name := range names {
		if !validateNormalName(name) {
			return errors.Errorf("invalid %s name '%s'", kind, name)
		}
	}
	return nil
}

func pathID(c *gin.Context) (proto.TransactionID, error) {
	id, err := proto.ParseTransactionID(c.Param("id"))
	if err != nil {
		return 0, exception.Wrap(exception.CodeInvalidParams, err)
	}
	return id, nil
}

func queryBool(c *gin.Context, key string, def bool) (bool, error) {
	v, ok := c.GetQuery(key)
	if !ok || len(v) == 0 {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, exception.New(exception.CodeInvalidParams, "invalid value '%s' of '%s'", v, key)
	}
	return b, nil
}

func queryDuration(c *gin.Context, key string, def time.Duration) (time.Duration, error) {
	v, ok := c.GetQuery(key)
	if !ok || len(v) == 0 {
		return def, nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil || d < 0 {
		return 0, exception.New(exception.CodeInvalidParams, "invalid duration '%s' of '%s'", v, key)
	}
	return d, nil
}
