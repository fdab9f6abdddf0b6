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

package env

import (
	"os"
	"strings"
)

import (
	"github.com/arana-db/trxmgr/pkg/constants"
)

// IsDevelopEnvironment reports whether the develop environment switch is on.
func IsDevelopEnvironment() bool {
	switch strings.ToLower(os.Getenv(constants.EnvDevelopEnvironment)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
