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


package core

import (
	"fmt"
	"time"
)

// ValidateConcept validates a Concept according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Confidence must be within [0, 1]
//
// NOT validated (populated by learning):
//   - Vector (can be empty until an embedding is attached)
//   - Id (derived from content on insert)
func ValidateConcept(concept *Concept) error {
	if concept == nil {
		return fmt.Errorf("%w: concept is nil", ErrInvalidConcept)
	}

	if concept.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrEmptyContent)
	}

	if concept.Confidence < 0 || concept.Confidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrInvalidConfidence)
	}

	return nil
}

// ValidateAssociation validates an Association according to domain rules.
//
// Validation rules:
//   - Both endpoints must be non-zero
//   - Type must be a known AssociationType
//   - Confidence must be within [0, 1]
func ValidateAssociation(assoc *Association) error {
	if assoc == nil {
		return fmt.Errorf("%w: association is nil", ErrInvalidAssociation)
	}

	if assoc.SourceId.IsZero() || assoc.TargetId.IsZero() {
		return fmt.Errorf("%w: endpoint id is zero", ErrInvalidAssociation)
	}

	if err := ValidateAssociationType(assoc.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAssociation, err)
	}

	if assoc.Confidence < 0 || assoc.Confidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidAssociation, ErrInvalidConfidence)
	}

	return nil
}

// ValidateAssociationType validates that an AssociationType has a known value.
func ValidateAssociationType(t AssociationType) error {
	if t < AssociationSemantic || t > AssociationCompositional {
		return fmt.Errorf("%w: value %d", ErrInvalidAssociationType, t)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
