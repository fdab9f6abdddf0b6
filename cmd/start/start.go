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

package start

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

import (
	"github.com/spf13/cobra"
)

import (
	"github.com/arana-db/trxmgr/cmd/cmds"
	"github.com/arana-db/trxmgr/pkg/admin"
	_ "github.com/arana-db/trxmgr/pkg/admin/router"
	"github.com/arana-db/trxmgr/pkg/cluster"
	"github.com/arana-db/trxmgr/pkg/config"
	"github.com/arana-db/trxmgr/pkg/constants"
	"github.com/arana-db/trxmgr/pkg/lease"
	"github.com/arana-db/trxmgr/pkg/metrics"
	_ "github.com/arana-db/trxmgr/pkg/metrics/prometheus"
	"github.com/arana-db/trxmgr/pkg/state"
	"github.com/arana-db/trxmgr/pkg/trace"
	_ "github.com/arana-db/trxmgr/pkg/trace/jaeger"
	"github.com/arana-db/trxmgr/pkg/transaction"
	"github.com/arana-db/trxmgr/pkg/util/identity"
	"github.com/arana-db/trxmgr/pkg/util/log"
	unet "github.com/arana-db/trxmgr/pkg/util/net"
)

func init() {
	cmd := &cobra.Command{
		Use:     "start",
		Short:   "start the transaction coordinator",
		Example: "trxmgr start -c bootstrap.yaml",
		RunE:    run,
	}
	cmd.PersistentFlags().
		StringP(constants.ConfigPathKey, "c", os.Getenv(constants.EnvBootstrapPath), "bootstrap configuration file path")

	cmds.Handle(func(root *cobra.Command) {
		root.AddCommand(cmd)
	})
}

func run(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.PersistentFlags().GetString(constants.ConfigPathKey)
	if len(path) < 1 {
		path = searchBootstrap()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log.Init(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1) // second signal. Exit directly.
	}()

	return Run(ctx, cfg)
}

func searchBootstrap() string {
	var path string
	for _, dir := range constants.GetConfigSearchPathList() {
		path = filepath.Join(dir, "bootstrap.yaml")
		if _, err := os.Stat(path); err == nil {
			break
		}
		path = filepath.Join(dir, "bootstrap.yml")
		if _, err := os.Stat(path); err == nil {
			break
		}
	}
	return path
}

// Run serves until ctx is done, then drains the registry.
func Run(ctx context.Context, cfg *config.Bootstrap) error {
	if cfg.Metric.Enable {
		if err := metrics.Initialize(ctx, cfg.Metric); err != nil {
			log.Warnf("init metrics provider failed: %v", err)
		}
	}
	if cfg.Trace.Enable {
		if err := trace.Initialize(ctx, cfg.Trace); err != nil {
			log.Warnf("init trace provider failed: %v", err)
		}
	}

	serverID := cfg.Cluster.ServerID
	if len(serverID) == 0 {
		serverID = identity.GetNodeIdentity()
	}

	factory, err := state.NewFactory(state.DefaultHistorySize)
	if err != nil {
		return err
	}

	issuer := lease.NewIssuer()
	opts := []transaction.Option{
		transaction.WithServerID(serverID),
		transaction.WithIssuer(issuer),
	}

	var membership *cluster.Membership
	if cfg.Cluster.Enable {
		if membership, err = joinCluster(ctx, cfg, serverID); err != nil {
			return err
		}
		defer func() {
			_ = membership.Close()
		}()
		tracker := cluster.NewRebootTracker()
		if err = membership.Sync(ctx, tracker); err != nil {
			return err
		}
		opts = append(opts,
			transaction.WithRebootTracker(tracker),
			transaction.WithFanout(cluster.NewHTTPFanout(serverID, tracker, issuer)),
		)
	}

	registry, err := transaction.New(cfg.Registry, factory, opts...)
	if err != nil {
		return err
	}
	if cfg.Metric.Enable {
		if err = metrics.Register(metrics.NewRegistryCollector(registry)); err != nil {
			log.Warnf("register registry collector failed: %v", err)
		}
	}

	gcCtx, stopGC := context.WithCancel(context.Background())
	gcDone := registry.StartGC(gcCtx, cfg.Registry.GCInterval)

	var srv *admin.Server
	if cfg.Admin.Enable {
		if srv, err = admin.New(registry, cfg.Admin.Auth); err != nil {
			stopGC()
			return err
		}
		go func() {
			if err := srv.Listen(cfg.Admin.Address); err != nil {
				log.Errorf("admin server stopped: %v", err)
			}
		}()
	}

	log.Infof("coordinator %s started", serverID)
	<-ctx.Done()

	log.Infof("coordinator %s is shutting down", serverID)
	registry.InitiateSoftShutdown()
	registry.DisallowInserts()

	if membership != nil {
		unregisterCtx, done := context.WithTimeout(context.Background(), cfg.Cluster.DialTimeout)
		if err := membership.Unregister(unregisterCtx); err != nil {
			log.Warnf("unregister coordinator %s failed: %v", serverID, err)
		}
		done()
	}

	// the final collection aborts what is still running
	stopGC()
	<-gcDone

	if srv != nil {
		_ = srv.Close()
	}
	log.Infof("coordinator %s stopped, %d transactions left running", serverID, registry.Running())
	return nil
}

func joinCluster(ctx context.Context, cfg *config.Bootstrap, serverID string) (*cluster.Membership, error) {
	membership, err := cluster.NewMembership(cfg.Cluster)
	if err != nil {
		return nil, err
	}

	rebootID, err := membership.NextRebootID(ctx, serverID)
	if err != nil {
		_ = membership.Close()
		return nil, err
	}

	advertise, err := advertiseAddress(cfg)
	if err != nil {
		_ = membership.Close()
		return nil, err
	}

	self := cluster.Peer{ServerID: serverID, RebootID: rebootID, Address: advertise, Version: constants.Version}
	if err = membership.Register(ctx, self); err != nil {
		_ = membership.Close()
		return nil, err
	}
	return membership, nil
}

func advertiseAddress(cfg *config.Bootstrap) (string, error) {
	if len(cfg.Cluster.Advertise) > 0 {
		return cfg.Cluster.Advertise, nil
	}
	if !cfg.Admin.Enable {
		return "", nil
	}
	return unet.AdvertiseURL(cfg.Admin.Address)
}
