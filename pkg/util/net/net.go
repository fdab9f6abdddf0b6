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

// Package net finds the address a coordinator publishes to its peers.
package net

import (
	"net"
	"os"
)

import (
	perrors "github.com/pkg/errors"
)

import (
	"github.com/arana-db/trxmgr/pkg/constants"
)

var ErrNoAddress = perrors.New("no usable network address")

// FindSelfIP returns the first non-loopback address of this host, or a
// loopback address when there is no other. TRXMGR_NET_IPV6=true prefers IPv6.
func FindSelfIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	ip, err := selectIP(addrs, os.Getenv(constants.EnvNetIPv6) == "true")
	if err != nil {
		return "", err
	}
	return ip.String(), nil
}

func selectIP(addrs []net.Addr, ipv6 bool) (net.IP, error) {
	var loopback net.IP
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsUnspecified() {
			continue
		}
		if ipnet.IP.IsLoopback() {
			if loopback == nil {
				loopback = ipnet.IP
			}
			continue
		}
		isV4 := ipnet.IP.To4() != nil
		if isV4 != ipv6 {
			return ipnet.IP, nil
		}
	}
	if loopback != nil {
		return loopback, nil
	}
	return nil, ErrNoAddress
}

// AdvertiseURL turns a listen address such as ":8529" into the http url
// peers use to reach this coordinator. An unspecified host is replaced
// by FindSelfIP.
func AdvertiseURL(listen string) (string, error) {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", perrors.Wrapf(err, "invalid listen address '%s'", listen)
	}
	if ip := net.ParseIP(host); len(host) == 0 || (ip != nil && ip.IsUnspecified()) {
		if host, err = FindSelfIP(); err != nil {
			return "", perrors.Wrap(err, "cannot find an address to advertise")
		}
	}
	return "http://" + net.JoinHostPort(host, port), nil
}
