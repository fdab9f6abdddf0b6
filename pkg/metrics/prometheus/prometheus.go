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

package prometheus

import (
	"context"
	"net/http"
	"time"
)

import (
	"github.com/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

import (
	"github.com/arana-db/trxmgr/pkg/config"
	"github.com/arana-db/trxmgr/pkg/metrics"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

type Prometheus struct {
	*MetricsManager
}

func init() {
	metrics.RegisterProviders(metrics.Prometheus, &Prometheus{})
}

func (p *Prometheus) Initialize(ctx context.Context, metricCfg *config.Metric) error {
	p.MetricsManager = NewMetricsManager(prometheus.NewRegistry())
	if len(metricCfg.Address) > 0 {
		p.MetricsManager.HttpServer.Addr = metricCfg.Address
	}
	p.MetricsManager.StartHttpServer()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := p.MetricsManager.HttpServer.Shutdown(shutdownCtx); err != nil {
			log.Warnf("failed to shutdown metrics http server: %v", err)
		}
	}()
	return nil
}

func (p *Prometheus) RecordMetrics(metricName string, value float64) error {
	switch metricName {
	case metrics.FinalizeDuration:
		p.MetricsManager.FinalizeDuration.Observe(value)
	case metrics.GCDuration:
		p.MetricsManager.GCDuration.Observe(value)
	case metrics.HoldDuration:
		p.MetricsManager.HoldDuration.Observe(value)
	case metrics.StatusChangeRetry:
		p.MetricsManager.StatusChangeRetries.Add(value)
	default:
		return errors.Errorf("metrics '%s' not found", metricName)
	}
	return nil
}

func (p *Prometheus) Register(collectors ...prometheus.Collector) error {
	for _, c := range collectors {
		if err := p.MetricsManager.registry.Register(c); err != nil {
			return errors.Wrap(err, "failed to register collector")
		}
	}
	return nil
}

type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

type Counter interface {
	Inc()
	Add(float64)
}

type Histogram interface {
	Observe(float64)
}

type MetricsManager struct {
	registry   Registry
	HttpServer *http.Server

	FinalizeDuration    Histogram
	GCDuration          Histogram
	HoldDuration        Histogram
	StatusChangeRetries Counter
}

func (m *MetricsManager) StartHttpServer() {
	go func() {
		if err := m.HttpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics http server exited: %v", err)
		}
	}()
}

func (m *MetricsManager) SignalStop() {
	if err := m.HttpServer.Close(); err != nil {
		log.Warnf("failed to close metrics http server: %v", err)
	}
}

func NewMetricsManager(r Registry) *MetricsManager {
	finalize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trxmgr_finalize_duration_seconds",
		Help:    "Time spent committing or aborting a managed transaction",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
	})
	gc := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trxmgr_gc_duration_seconds",
		Help:    "Time spent in one garbage collection run",
		Buckets: prometheus.DefBuckets,
	})
	hold := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trxmgr_commit_hold_seconds",
		Help:    "Time the commit barrier was held",
		Buckets: prometheus.DefBuckets,
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trxmgr_status_change_retries_total",
		Help: "Finalize attempts retried because of side users",
	})
	r.MustRegister(finalize, gc, hold, retries)

	return &MetricsManager{
		registry: r,
		HttpServer: &http.Server{
			Addr:    ":9100",
			Handler: promhttp.HandlerFor(r, promhttp.HandlerOpts{}),
		},
		FinalizeDuration:    finalize,
		GCDuration:          gc,
		HoldDuration:        hold,
		StatusChangeRetries: retries,
	}
}
