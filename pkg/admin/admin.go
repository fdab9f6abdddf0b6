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

// Package admin serves the HTTP API of a coordinator: the transaction
// endpoints other coordinators and clients call, and the operator endpoints.
package admin

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

import (
	"github.com/gin-gonic/gin"

	perrors "github.com/pkg/errors"

	uatomic "go.uber.org/atomic"
)

import (
	"github.com/arana-db/trxmgr/pkg/admin/exception"
	"github.com/arana-db/trxmgr/pkg/config"
	"github.com/arana-db/trxmgr/pkg/metrics"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/transaction"
	"github.com/arana-db/trxmgr/pkg/util/env"
)

const K = "TRXMGR_ADMIN_SERVICE"

// Service is the registry as seen by the HTTP handlers.
type Service interface {
	CreateManagedTrx(ctx context.Context, database string, opts *proto.TransactionOptions) (proto.TransactionID, error)
	EnsureManagedTrx(ctx context.Context, id proto.TransactionID, database string, opts *proto.TransactionOptions) error
	CommitManagedTrx(ctx context.Context, id proto.TransactionID, database string) (proto.Status, error)
	AbortManagedTrx(ctx context.Context, id proto.TransactionID, database string) (proto.Status, error)
	GetManagedTrxStatus(id proto.TransactionID, database string) proto.Status
	Snapshot(ctx context.Context, database, user string, fanout, details bool) ([]proto.TransactionInfo, error)
	AbortAllManagedWriteTrx(ctx context.Context, user string, fanout bool) error
	HoldTransactions(timeout time.Duration) bool
	ReleaseTransactions()
	GarbageCollect(abortAll bool) bool
	Stats() metrics.RegistryStats
}

var _ Service = (*transaction.Registry)(nil)

// Handler is a gin handler which reports failures by returning them.
type Handler func(c *gin.Context) error

// Router registers Handlers.
type Router interface {
	GET(path string, handlers ...Handler)
	POST(path string, handlers ...Handler)
	PUT(path string, handlers ...Handler)
	DELETE(path string, handlers ...Handler)
}

type Hook func(router Router)

var (
	_hooks        []Hook
	_securedHooks []Hook
)

// Register adds routes used by other coordinators and clients.
func Register(hook Hook) {
	_hooks = append(_hooks, hook)
}

// RegisterSecured adds operator routes, which require a token when authentication is configured.
func RegisterSecured(hook Hook) {
	_securedHooks = append(_securedHooks, hook)
}

func init() {
	if env.IsDevelopEnvironment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

type Server struct {
	l       net.Listener
	engine  *gin.Engine
	service Service
	started uatomic.Bool
}

// New builds the routes of service. auth may be nil.
func New(service Service, auth *config.AdminAuth) (*Server, error) {
	srv := &Server{
		service: service,
		engine:  gin.New(),
	}

	srv.engine.Use(func(c *gin.Context) {
		c.Set(K, srv.service)
		c.Next()
	})
	srv.engine.Use(gin.Logger())
	srv.engine.Use(gin.Recovery())
	srv.engine.Use(Tracing())
	srv.engine.Use(ErrorHandler(
		Map(transaction.ErrNotFound).ToStatusCode(http.StatusNotFound),
		Map(transaction.ErrDuplicateID, transaction.ErrOptionsConflict, proto.ErrAbortRequired).ToStatusCode(http.StatusConflict),
		Map(transaction.ErrStatusChangeTimeout).ToStatusCode(http.StatusRequestTimeout),
		Map(transaction.ErrShuttingDown).ToStatusCode(http.StatusServiceUnavailable),
		Map(transaction.ErrDisallowedOperation).ToStatusCode(http.StatusForbidden),
		MapType(&transaction.AlreadyFinalizedError{}).ToStatusCode(http.StatusGone),
		MapType(exception.APIException{}).ToResponse(func(c *gin.Context, err error) {
			var ae exception.APIException
			_ = perrors.As(err, &ae)
			c.JSON(ae.Code.HttpStatus(), gin.H{"code": ae.Code, "error": ae.Message})
		}),
	))

	for _, hook := range _hooks {
		hook(wrapRouter(srv.engine))
	}

	var secured gin.IRoutes = srv.engine
	if auth != nil {
		mw, err := NewAuthMiddleware(auth)
		if err != nil {
			return nil, err
		}
		srv.engine.POST("/_admin/login", mw.LoginHandler)
		srv.engine.GET("/_admin/refresh_token", mw.RefreshHandler)
		secured = srv.engine.Group("/", mw.MiddlewareFunc())
	}
	for _, hook := range _securedHooks {
		hook(wrapRouter(secured))
	}

	return srv, nil
}

// Handler exposes the routes, mostly for tests.
func (srv *Server) Handler() http.Handler {
	return srv.engine
}

func (srv *Server) Close() error {
	if srv.l != nil {
		return srv.l.Close()
	}
	return nil
}

func (srv *Server) Listen(addr string) error {
	if !srv.started.CAS(false, true) {
		return io.EOF
	}

	var (
		c   net.ListenConfig
		err error
	)
	if srv.l, err = c.Listen(context.Background(), "tcp", addr); err != nil {
		return perrors.WithStack(err)
	}
	return srv.engine.RunListener(srv.l)
}

// GetService returns Service from gin context.
func GetService(c *gin.Context) Service {
	v, _ := c.Get(K)
	return v.(Service)
}

// Identity returns the authenticated operator, if any.
func Identity(c *gin.Context) string {
	v, ok := c.Get(_identityKey)
	if !ok {
		return ""
	}
	name, _ := v.(string)
	return name
}

type myRouter struct {
	r gin.IRoutes
}

func wrapRouter(r gin.IRoutes) Router {
	return myRouter{r: r}
}

func (m myRouter) GET(path string, handlers ...Handler) {
	m.r.GET(path, convert(handlers)...)
}

func (m myRouter) POST(path string, handlers ...Handler) {
	m.r.POST(path, convert(handlers)...)
}

func (m myRouter) PUT(path string, handlers ...Handler) {
	m.r.PUT(path, convert(handlers)...)
}

func (m myRouter) DELETE(path string, handlers ...Handler) {
	m.r.DELETE(path, convert(handlers)...)
}

func convert(handlers []Handler) []gin.HandlerFunc {
	ret := make([]gin.HandlerFunc, 0, len(handlers))
	for i := range handlers {
		h := handlers[i]
		ret = append(ret, func(c *gin.Context) {
			if err := h(c); err != nil {
				_ = c.Error(err)
				c.Abort()
			}
		})
	}
	return ret
}
