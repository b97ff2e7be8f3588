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


package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/sbp"
	"github.com/poiesic/cognate/storage"
)

// GraphRepository implements storage.GraphRepository for BadgerDB.
// Values are protocol frames, so the on-disk format and the wire
// format are one codec.
type GraphRepository struct {
	backend *Backend
}

var _ storage.GraphRepository = (*GraphRepository)(nil)

// NewGraphRepository creates a new GraphRepository.
func NewGraphRepository(backend *Backend) (*GraphRepository, error) {
	return &GraphRepository{
		backend: backend,
	}, nil
}

// Close releases resources. GraphRepository has no resources to release.
func (r *GraphRepository) Close() error {
	return nil
}

// SaveGraph persists every concept and association through a write
// batch, overwriting records with the same identity.
func (r *GraphRepository) SaveGraph(ctx context.Context, concepts []core.Concept, associations []core.Association) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := r.backend.NewWriteBatch()
	defer batch.Cancel()

	for i := range concepts {
		key := makeConceptKey(concepts[i].Id)
		if err := batch.Set(key, sbp.EncodeConcept(&concepts[i])); err != nil {
			return err
		}
	}
	for i := range associations {
		key := makeAssociationKey(associations[i].SourceId, associations[i].TargetId)
		if err := batch.Set(key, sbp.EncodeAssociation(&associations[i])); err != nil {
			return err
		}
	}
	return batch.Flush()
}

// LoadGraph reads back the persisted graph. Any record that fails to
// decode aborts the load.
func (r *GraphRepository) LoadGraph(ctx context.Context) ([]core.Concept, []core.Association, error) {
	if r.backend.IsClosed() {
		return nil, nil, storage.ErrStorageClosed
	}

	var concepts []core.Concept
	var associations []core.Association

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := scanPrefix(tx, conceptPrefix, func(val []byte) error {
			concept, err := sbp.DecodeConcept(val)
			if err != nil {
				return fmt.Errorf("%w: concept: %w", storage.ErrCorruptRecord, err)
			}
			concepts = append(concepts, concept)
			return nil
		}); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return scanPrefix(tx, associationPrefix, func(val []byte) error {
			assoc, err := sbp.DecodeAssociation(val)
			if err != nil {
				return fmt.Errorf("%w: association: %w", storage.ErrCorruptRecord, err)
			}
			associations = append(associations, assoc)
			return nil
		})
	}, false)

	if err != nil {
		return nil, nil, err
	}
	return concepts, associations, nil
}

// SaveProviderState persists the provider's opaque fitted state.
func (r *GraphRepository) SaveProviderState(ctx context.Context, state []byte) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(providerStateKey), state); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadProviderState reads the provider state back.
func (r *GraphRepository) LoadProviderState(ctx context.Context) ([]byte, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var state []byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(providerStateKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		state, err = item.ValueCopy(nil)
		return err
	}, false)

	if err != nil {
		return nil, err
	}
	return state, nil
}

// scanPrefix iterates every value under a key prefix.
func scanPrefix(tx *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := iter.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
