// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package graph

import "errors"

var (
	// ErrUnknownConcept indicates an association references a concept id
	// that does not exist in the store.
	ErrUnknownConcept = errors.New("unknown concept id")

	// ErrConceptExists indicates a restore attempted to overwrite an
	// existing concept with different content.
	ErrConceptExists = errors.New("concept already exists")
)
