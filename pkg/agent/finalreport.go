// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package agent

import "strings"

// FinalReportCheck decides whether model text is a complete final report.
// It is a heuristic, kept behind this type so it can be replaced by a
// structured completion signal without touching the loop.
type FinalReportCheck func(content string) bool

// finalReportMinLength filters out short acknowledgements that happen to
// mention a section marker.
const finalReportMinLength = 300

var finalReportMarkers = []string{
	"**What I Found**",
	"**The Problem**",
	"Root Cause",
	"How to Fix",
}

// DefaultFinalReportCheck accepts content longer than 300 characters that
// carries at least one of the expected report section markers.
func DefaultFinalReportCheck(content string) bool {
	if len(content) <= finalReportMinLength {
		return false
	}
	for _, marker := range finalReportMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}
