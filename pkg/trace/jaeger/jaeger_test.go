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

package jaeger

import (
	"context"
	"testing"
)

import (
	"github.com/stretchr/testify/assert"

	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"
)

import (
	"github.com/arana-db/trxmgr/pkg/config"
)

func TestJaegerProvider(t *testing.T) {
	tCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := &Jaeger{}
	err := j.Initialize(tCtx, &config.Trace{
		Type:    "jaeger",
		Address: "http://localhost:14268/api/traces",
	})
	assert.NoError(t, err)
	assert.NotNil(t, otel.GetTracerProvider())

	ctx, ok := j.Extract(tCtx, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00")
	assert.True(t, ok)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", oteltrace.SpanContextFromContext(ctx).TraceID().String())

	ctx, ok = j.Extract(tCtx, "garbage")
	assert.False(t, ok)
	assert.Equal(t, tCtx, ctx)
}
