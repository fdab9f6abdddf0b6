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

package admin

import (
	"errors"
	"net/http"
	"reflect"
)

import (
	"github.com/gin-gonic/gin"
)

import (
	"github.com/arana-db/trxmgr/pkg/cluster"
	"github.com/arana-db/trxmgr/pkg/trace"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

// ErrorHandler is middleware that enables you to configure error handling from a centralized place via its fluent API.
// Copyright: https://github.com/josephwoodward/gin-errorhandling
func ErrorHandler(errMap ...*errorMapping) gin.HandlerFunc {
	return func(context *gin.Context) {
		context.Next()

		lastErr := context.Errors.Last()
		if lastErr == nil || context.Writer.Written() {
			return
		}

		for _, e := range errMap {
			if e.matches(lastErr.Err) {
				e.toResponse(context, lastErr.Err)
				return
			}
		}

		log.Errorf("%s %s failed: %+v", context.Request.Method, context.Request.URL.Path, lastErr.Err)
		writeError(context, http.StatusInternalServerError, lastErr.Err)
	}
}

// isType reports whether any error in the chain of a has the dynamic type of b.
func isType(a, b error) bool {
	want := reflect.TypeOf(b)
	for ; a != nil; a = errors.Unwrap(a) {
		if reflect.TypeOf(a) == want {
			return true
		}
	}
	return false
}

func writeError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

type errorMapping struct {
	fromErrors   []error
	fromTypes    []error
	toStatusCode int
	toResponse   func(ctx *gin.Context, err error)
}

func (r *errorMapping) matches(err error) bool {
	for _, e := range r.fromErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	for _, e := range r.fromTypes {
		if isType(err, e) {
			return true
		}
	}
	return false
}

// ToStatusCode specifies the status code returned to a caller when the error is handled.
func (r *errorMapping) ToStatusCode(statusCode int) *errorMapping {
	r.toStatusCode = statusCode
	r.toResponse = func(ctx *gin.Context, err error) {
		writeError(ctx, statusCode, err)
	}
	return r
}

// ToResponse provides more control over the returned response when an error is matched.
func (r *errorMapping) ToResponse(response func(ctx *gin.Context, err error)) *errorMapping {
	r.toResponse = response
	return r
}

// Map enables you to map errors to a given response status code or response body.
func Map(err ...error) *errorMapping {
	return &errorMapping{
		fromErrors: err,
	}
}

// MapType matches any error in the chain sharing the dynamic type of one of the samples.
func MapType(samples ...error) *errorMapping {
	return &errorMapping{
		fromTypes: samples,
	}
}

// Tracing continues the trace of the caller and logs the lease a peer request carries.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctx, ok := trace.Extract(c.Request.Context(), c.GetHeader(trace.ParentHeader)); ok {
			c.Request = c.Request.WithContext(ctx)
		}
		if lease := c.GetHeader(cluster.LeaseHeader); len(lease) > 0 {
			log.Debugf("%s: %s %s", lease, c.Request.Method, c.Request.URL.Path)
		}
		c.Next()
	}
}
