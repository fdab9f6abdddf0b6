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

package transaction

import (
	"context"
	"time"
)

import (
	"github.com/cenkalti/backoff/v4"

	perrors "github.com/pkg/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

import (
	"github.com/arana-db/trxmgr/pkg/metrics"
	"github.com/arana-db/trxmgr/pkg/proto"
	"github.com/arana-db/trxmgr/pkg/trace"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

// CommitManagedTrx commits a managed transaction. A finalized transaction
// answers with the status it was finalized with. An empty database
// matches the transaction whatever its database.
func (r *Registry) CommitManagedTrx(ctx context.Context, id proto.TransactionID, database string) (proto.Status, error) {
	return r.statusChangeWithTimeout(ctx, id, database, proto.StatusCommitted)
}

// AbortManagedTrx aborts a managed transaction. A finalized transaction
// answers with the status it was finalized with.
func (r *Registry) AbortManagedTrx(ctx context.Context, id proto.TransactionID, database string) (proto.Status, error) {
	return r.statusChangeWithTimeout(ctx, id, database, proto.StatusAborted)
}

// statusChangeWithTimeout retries while side users hold the transaction.
func (r *Registry) statusChangeWithTimeout(ctx context.Context, id proto.TransactionID, database string, want proto.Status) (proto.Status, error) {
	ctx, span := trace.Tracer().Start(ctx, "transaction.finalize", oteltrace.WithAttributes(
		attribute.Int64("trx.id", int64(id)),
		attribute.String("trx.database", database),
		attribute.String("trx.want", want.String()),
	))
	defer span.End()

	retryCtx, cancel := context.WithTimeout(ctx, r.cfg.StatusChangeTimeout)
	defer cancel()

	var (
		status   proto.Status
		lastErr  error
		attempts int
	)
	op := func() error {
		attempts++
		status, lastErr = r.updateTransaction(ctx, id, database, want)
		switch {
		case lastErr == nil:
			return nil
		case perrors.Is(lastErr, ErrBusy):
			return lastErr
		default:
			return backoff.Permanent(lastErr)
		}
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(r.cfg.StatusChangeInterval), retryCtx))
	if attempts > 1 {
		metrics.Observe(metrics.StatusChangeRetry, float64(attempts-1))
	}

	if err == nil {
		span.SetAttributes(attribute.String("trx.status", status.String()))
		return status, nil
	}
	if perrors.Is(lastErr, ErrBusy) {
		err = perrors.Wrapf(ErrStatusChangeTimeout, "transaction %d is still used by side users after %s", id, r.cfg.StatusChangeTimeout)
		status = proto.StatusRunning
	} else {
		err = lastErr
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return status, err
}

func (r *Registry) updateTransaction(ctx context.Context, id proto.TransactionID, database string, want proto.Status) (proto.Status, error) {
	if err := r.barrier.Acquire(ctx, 1); err != nil {
		return proto.StatusUndefined, perrors.Wrap(err, "waiting for the commit barrier")
	}
	defer r.barrier.Release(1)

	e := r.lookup(id)
	if e == nil || !e.inDatabase(database) {
		return proto.StatusUndefined, perrors.Wrapf(ErrNotFound, "transaction %d", id)
	}

	start := time.Now()
	status, changed, err := e.finalize(ctx, want, byRequest, r.now, r.cfg.TombstoneTTL)
	if changed {
		r.finalized(e, status, time.Since(start))
	}
	return status, err
}

func (r *Registry) finalized(e *managedTrx, status proto.Status, took time.Duration) {
	r.running.Dec()
	if status == proto.StatusCommitted {
		r.committed.Inc()
	} else {
		r.aborted.Inc()
	}
	metrics.Observe(metrics.FinalizeDuration, took.Seconds())
	log.InfofWithLogType(log.TxLog, "transaction %d in database '%s' %s after %s", e.id, e.database, status, took)
}
