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

package cluster

import (
	"github.com/blang/semver"
)

// Compatible reports whether coordinators of the two versions understand each
// other's admin API. Unknown versions are assumed to be compatible.
func Compatible(self, other string) bool {
	if len(self) == 0 || len(other) == 0 {
		return true
	}
	a, err := semver.ParseTolerant(self)
	if err != nil {
		return true
	}
	b, err := semver.ParseTolerant(other)
	if err != nil {
		return true
	}
	return a.Major == b.Major
}
