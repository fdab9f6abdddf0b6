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
	"github.com/prometheus/client_golang/prometheus"
)

// RegistryStats is a point-in-time view of the transaction registry.
type RegistryStats struct {
	Running         int64  `json:"running"`
	Managed         int64  `json:"managed"`
	StandaloneAQL   int64  `json:"standalone_aql"`
	Tombstones      int64  `json:"tombstones"`
	SideUsers       int64  `json:"side_users"`
	Committed       uint64 `json:"committed"`
	Aborted         uint64 `json:"aborted"`
	Expired         uint64 `json:"expired"`
	Purged          uint64 `json:"purged"`
	BarrierHeld     bool   `json:"barrier_held"`
	InsertsDisabled bool   `json:"inserts_disabled"`
}

// StatsSource is implemented by the transaction registry.
type StatsSource interface {
	Stats() RegistryStats
}

type registryCollector struct {
	src             StatsSource
	runningDesc     *prometheus.Desc
	entriesDesc     *prometheus.Desc
	sideUsersDesc   *prometheus.Desc
	finalizedDesc   *prometheus.Desc
	expiredDesc     *prometheus.Desc
	purgedDesc      *prometheus.Desc
	barrierHeldDesc *prometheus.Desc
}

func NewRegistryCollector(src StatsSource) *registryCollector {
	return &registryCollector{
		src:             src,
		runningDesc:     prometheus.NewDesc("trxmgr_transactions_running", "Transactions counted as running", nil, nil),
		entriesDesc:     prometheus.NewDesc("trxmgr_registry_entries", "Entries held by the registry", []string{"kind"}, nil),
		sideUsersDesc:   prometheus.NewDesc("trxmgr_side_users", "Outstanding side-user leases", nil, nil),
		finalizedDesc:   prometheus.NewDesc("trxmgr_transactions_finalized_total", "Managed transactions finalized", []string{"status"}, nil),
		expiredDesc:     prometheus.NewDesc("trxmgr_transactions_expired_total", "Managed transactions aborted after their ttl", nil, nil),
		purgedDesc:      prometheus.NewDesc("trxmgr_tombstones_purged_total", "Tombstones removed by garbage collection", nil, nil),
		barrierHeldDesc: prometheus.NewDesc("trxmgr_commit_barrier_held", "Whether commits are currently held", nil, nil),
	}
}

func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runningDesc
	ch <- c.entriesDesc
	ch <- c.sideUsersDesc
	ch <- c.finalizedDesc
	ch <- c.expiredDesc
	ch <- c.purgedDesc
	ch <- c.barrierHeldDesc
}

func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	var held float64
	if s.BarrierHeld {
		held = 1
	}
	ch <- prometheus.MustNewConstMetric(c.runningDesc, prometheus.GaugeValue, float64(s.Running))
	ch <- prometheus.MustNewConstMetric(c.entriesDesc, prometheus.GaugeValue, float64(s.Managed), "managed")
	ch <- prometheus.MustNewConstMetric(c.entriesDesc, prometheus.GaugeValue, float64(s.StandaloneAQL), "aql")
	ch <- prometheus.MustNewConstMetric(c.entriesDesc, prometheus.GaugeValue, float64(s.Tombstones), "tombstone")
	ch <- prometheus.MustNewConstMetric(c.sideUsersDesc, prometheus.GaugeValue, float64(s.SideUsers))
	ch <- prometheus.MustNewConstMetric(c.finalizedDesc, prometheus.CounterValue, float64(s.Committed), "committed")
	ch <- prometheus.MustNewConstMetric(c.finalizedDesc, prometheus.CounterValue, float64(s.Aborted), "aborted")
	ch <- prometheus.MustNewConstMetric(c.expiredDesc, prometheus.CounterValue, float64(s.Expired))
	ch <- prometheus.MustNewConstMetric(c.purgedDesc, prometheus.CounterValue, float64(s.Purged))
	ch <- prometheus.MustNewConstMetric(c.barrierHeldDesc, prometheus.GaugeValue, held)
}
