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

package identity

import (
	"os"
	"sync"
)

import (
	"github.com/google/uuid"
)

import (
	"github.com/arana-db/trxmgr/pkg/constants"
	"github.com/arana-db/trxmgr/pkg/util/net"
)

var (
	_selfIdentity     string
	_selfIdentityOnce sync.Once
)

// GetNodeIdentity returns the identity of the current coordinator. The lookup order is
// the node id env, the pod name env, the first non-loopback ip and finally a random uuid.
func GetNodeIdentity() string {
	if id := os.Getenv(constants.EnvNodeID); len(id) > 0 {
		return id
	}
	if podName := os.Getenv(constants.EnvPodName); len(podName) > 0 {
		return podName
	}

	_selfIdentityOnce.Do(func() {
		if ip, err := net.FindSelfIP(); err == nil {
			_selfIdentity = ip
			return
		}
		_selfIdentity = uuid.NewString()
	})
	return _selfIdentity
}
