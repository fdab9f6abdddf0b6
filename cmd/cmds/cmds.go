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

package cmds

import (
	"fmt"
)

import (
	"github.com/spf13/cobra"
)

import (
	"github.com/arana-db/trxmgr/pkg/constants"
)

var Version = constants.Version

var _handlers []func(root *cobra.Command)

// Handle registers a sub command installer.
func Handle(h func(root *cobra.Command)) {
	_handlers = append(_handlers, h)
}

// NewRootCommand builds the root command with every registered sub command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "trxmgr",
		Short:   "trxmgr is the managed transaction coordinator",
		Version: Version,
	}
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "trxmgr %s\n", Version)
		},
	})
	for _, h := range _handlers {
		h(root)
	}
	return root
}
