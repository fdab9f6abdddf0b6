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

// Package test runs coordinators against a real etcd started in a container.
package test

import (
	"context"
	"fmt"
)

import (
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

import (
	"github.com/arana-db/trxmgr/pkg/util/log"
)

const _etcdImage = "quay.io/coreos/etcd:v3.5.9"

type EtcdContainer struct {
	testcontainers.Container
	Endpoint string
}

// SetupEtcdContainer starts a single member etcd and waits until it serves clients.
func SetupEtcdContainer(ctx context.Context) (*EtcdContainer, error) {
	log.Info("Setup etcd Container")
	req := testcontainers.ContainerRequest{
		Image:        _etcdImage,
		ExposedPorts: []string{"2379/tcp"},
		Cmd: []string{
			"etcd",
			"--name", "trxmgr-it",
			"--listen-client-urls", "http://0.0.0.0:2379",
			"--advertise-client-urls", "http://0.0.0.0:2379",
		},
		WaitingFor: wait.ForLog("ready to serve client requests"),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	mp, err := c.MappedPort(ctx, "2379")
	if err != nil {
		return nil, err
	}
	hostIP, err := c.Host(ctx)
	if err != nil {
		return nil, err
	}

	if hostIP == "localhost" {
		hostIP = "127.0.0.1"
	}

	return &EtcdContainer{
		Container: c,
		Endpoint:  fmt.Sprintf("http://%s:%d", hostIP, mp.Int()),
	}, nil
}
