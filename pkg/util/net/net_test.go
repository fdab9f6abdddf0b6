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

package net

import (
	"net"
	"testing"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipNet(s string) net.Addr {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func TestSelectIP(t *testing.T) {
	addrs := []net.Addr{
		ipNet("0.0.0.0"),
		ipNet("127.0.0.1"),
		ipNet("fe80::1"),
		ipNet("10.0.0.7"),
	}

	ip, err := selectIP(addrs, false)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", ip.String())

	ip, err = selectIP(addrs, true)
	require.NoError(t, err)
	assert.Equal(t, "fe80::1", ip.String())

	ip, err = selectIP(addrs[:2], false)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip.String())

	_, err = selectIP(addrs[:1], false)
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestAdvertiseURL(t *testing.T) {
	u, err := AdvertiseURL("10.1.2.3:8529")
	require.NoError(t, err)
	assert.Equal(t, "http://10.1.2.3:8529", u)

	u, err = AdvertiseURL("[::1]:8529")
	require.NoError(t, err)
	assert.Equal(t, "http://[::1]:8529", u)

	u, err = AdvertiseURL(":8529")
	require.NoError(t, err)
	assert.Regexp(t, `^http://.+:8529$`, u)

	_, err = AdvertiseURL("8529")
	assert.Error(t, err)
}
