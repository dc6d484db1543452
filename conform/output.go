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

package conform

import (
	"fmt"
	"io"
	"os"
	"sort"
)

var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func runF(format string, a ...interface{}) {
	fmt.Printf(colorCyan+"RUN  "+colorReset+format+"\n", a...)
}

func failF(format string, a ...interface{}) {
	fmt.Printf(colorRed+"FAIL "+colorReset+format+"\n", a...)
}

func passF(format string, a ...interface{}) {
	fmt.Printf(colorGreen+"PASS "+colorReset+format+"\n", a...)
}

func gapF(format string, a ...interface{}) {
	fmt.Printf(colorYellow+"GAP  "+colorReset+format+"\n", a...)
}

func skipF(format string, a ...interface{}) {
	fmt.Printf(colorYellow+"SKIP "+colorReset+format+"\n", a...)
}

func debugWriter() io.Writer { return os.Stderr }

// PrintSummary writes the per-category and total counts, the failed
// test detail, and any cleanup warnings to stdout. Unsupported tests
// are listed apart from both passed and failed so expected gaps never
// look like regressions.
func PrintSummary(rep *Report) {
	fmt.Println()
	counts := rep.Counts()

	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	for _, c := range categories {
		n := counts[Category(c)]
		fmt.Printf("%-12v pass: %v, unsupported: %v, fail: %v, skip: %v\n",
			c, n[StatusPassed], n[StatusUnsupported], n[StatusFailed], n[StatusSkipped])
	}

	fmt.Println()
	fmt.Println("RAN:", len(rep.Outcomes),
		"PASS:", rep.Total(StatusPassed),
		"UNSUPPORTED:", rep.Total(StatusUnsupported),
		"FAIL:", rep.Total(StatusFailed),
		"SKIP:", rep.Total(StatusSkipped))

	for _, o := range rep.Failed() {
		failF("%v %v: %v", o.ID, o.Name, o.Reason)
	}

	for _, o := range rep.Outcomes {
		for _, w := range o.CleanupWarnings {
			fmt.Fprintf(os.Stderr, "cleanup warning (%v): %v\n", o.ID, w)
		}
	}
}
