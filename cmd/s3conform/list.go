// Copyright 2023 Versity Software
// This file is licensed under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/versity/s3conform/conform"
	"github.com/versity/s3conform/conform/suite"
)

func listCommand() *cli.Command {
	var listFilter string

	return &cli.Command{
		Name:  "list",
		Usage: "List the registered conformance tests",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "filter",
				Usage:       "list only tests in the given category",
				Aliases:     []string{"f"},
				Destination: &listFilter,
			},
		},
		Action: func(ctx *cli.Context) error {
			reg := conform.NewRegistry()
			if err := suite.RegisterAll(reg); err != nil {
				return fmt.Errorf("register test cases: %w", err)
			}

			cases := reg.Select(conform.Category(listFilter), "")
			if len(cases) == 0 {
				return fmt.Errorf("no tests match category %q", listFilter)
			}

			for _, tc := range cases {
				fmt.Printf("%-5v %-12v %v\n", tc.ID, tc.Category, tc.Name)
			}
			return nil
		},
	}
}
