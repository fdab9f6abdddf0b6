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

package metrics

import (
	"context"
	"sync"
)

import (
	"github.com/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
)

import (
	"github.com/arana-db/trxmgr/pkg/config"
	"github.com/arana-db/trxmgr/pkg/util/log"
)

const (
	Prometheus ProviderType = "prometheus"
)

// Names accepted by RecordMetrics.
const (
	FinalizeDuration  = "finalize_duration"
	GCDuration        = "gc_duration"
	HoldDuration      = "hold_duration"
	StatusChangeRetry = "status_change_retry"
)

// ProviderType is a string alias representing the type of metrics provider.
type ProviderType string

var (
	providers = make(map[ProviderType]Provider)
	// currentProvider holds the currently active provider, nil until Initialize succeeds.
	currentProvider Provider
	mu              sync.RWMutex
)

// RegisterProviders registers a new metrics provider.
func RegisterProviders(pType ProviderType, p Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[pType] = p
}

// Initialize sets up the provider selected by the configuration.
func Initialize(ctx context.Context, cfg *config.Metric) error {
	mu.Lock()
	defer mu.Unlock()
	if currentProvider != nil {
		return nil
	}
	provider, ok := providers[ProviderType(cfg.Type)]
	if !ok {
		return errors.Errorf("not supported %s metrics provider", cfg.Type)
	}
	if err := provider.Initialize(ctx, cfg); err != nil {
		return err
	}
	currentProvider = provider
	return nil
}

func current() Provider {
	mu.RLock()
	defer mu.RUnlock()
	return currentProvider
}

// RecordMetrics records one observation. It is a no-op while no provider is initialized.
func RecordMetrics(metricName string, value float64) error {
	p := current()
	if p == nil {
		return nil
	}
	return p.RecordMetrics(metricName, value)
}

// Observe records one observation on a hot path, where a provider error
// must not fail the caller.
func Observe(metricName string, value float64) {
	if err := RecordMetrics(metricName, value); err != nil {
		log.Debugf("failed to record metric %s: %v", metricName, err)
	}
}

// Register adds collectors to the active provider.
func Register(collectors ...prometheus.Collector) error {
	p := current()
	if p == nil {
		return errors.New("no metrics provider initialized")
	}
	return p.Register(collectors...)
}

// Provider interface defines the methods that a metrics provider must implement.
type Provider interface {
	Initialize(ctx context.Context, cfg *config.Metric) error
	RecordMetrics(metricName string, value float64) error
	Register(collectors ...prometheus.Collector) error
}
