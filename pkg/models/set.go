/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// StringSet is an unordered set of lowercased strings.
type StringSet map[string]struct{}

// NewStringSet returns a set holding the given values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s.Add(v)
	}

	return s
}

// Add inserts value after lowercasing it. Empty values are ignored.
func (s StringSet) Add(value string) {
	value = strings.ToLower(value)
	if value == "" {
		return
	}

	s[value] = struct{}{}
}

func (s StringSet) Has(value string) bool {
	_, ok := s[strings.ToLower(value)]

	return ok
}

func (s StringSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}

	sort.Strings(out)

	return out
}

// First returns the lexically smallest member, or "" for an empty set.
func (s StringSet) First() string {
	sorted := s.Sorted()
	if len(sorted) == 0 {
		return ""
	}

	return sorted[0]
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(b []byte) error {
	var values []string
	if err := json.Unmarshal(b, &values); err != nil {
		return err
	}

	*s = NewStringSet(values...)

	return nil
}
