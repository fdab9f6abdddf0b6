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
	"crypto/subtle"
	"time"
)

import (
	jwt "github.com/appleboy/gin-jwt/v2"

	"github.com/gin-gonic/gin"
)

import (
	"github.com/arana-db/trxmgr/pkg/config"
)

const _identityKey = "operator"

type LoginPayload struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// NewAuthMiddleware issues and checks operator tokens for the single operator account of auth.
func NewAuthMiddleware(auth *config.AdminAuth) (*jwt.GinJWTMiddleware, error) {
	return jwt.New(&jwt.GinJWTMiddleware{
		Realm:       auth.Realm,
		Key:         []byte(auth.Secret),
		Timeout:     auth.Timeout,
		MaxRefresh:  auth.Timeout,
		IdentityKey: _identityKey,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if v, ok := data.(*LoginPayload); ok {
				return jwt.MapClaims{
					_identityKey: v.Username,
				}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(c *gin.Context) interface{} {
			name, _ := jwt.ExtractClaims(c)[_identityKey].(string)
			return name
		},
		Authenticator: func(c *gin.Context) (interface{}, error) {
			var payload LoginPayload
			if err := c.ShouldBind(&payload); err != nil {
				return nil, jwt.ErrMissingLoginValues
			}
			if !validateOperator(auth, payload.Username, payload.Password) {
				return nil, jwt.ErrFailedAuthentication
			}
			return &payload, nil
		},
		Authorizator: func(data interface{}, c *gin.Context) bool {
			name, ok := data.(string)
			return ok && name == auth.Username
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			c.JSON(code, gin.H{
				"code":  code,
				"error": message,
			})
		},
		TokenLookup:   "header: Authorization, query: token",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})
}

func validateOperator(auth *config.AdminAuth, username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(auth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(auth.Password)) == 1
	return userOK && passOK
}
