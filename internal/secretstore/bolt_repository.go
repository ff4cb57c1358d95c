/*
Copyright © 2025 Ian Shuley

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package secretstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"authbridge/pkg/config"
	"authbridge/pkg/errors"
	"authbridge/pkg/secrets"
)

var bucketHashRecords = []byte("hash_records")

// BoltRepository stores hash records in a bbolt database. Every Put runs in
// its own transaction.
type BoltRepository struct {
	db   *bbolt.DB
	path string
}

// OpenBoltRepository opens or creates the database at path
func OpenBoltRepository(path string) (*BoltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), config.SecureDirectoryMode); err != nil {
		return nil, errors.NewStorageFailureError("mkdir", err)
	}

	db, err := bbolt.Open(path, config.SecureFileMode, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.NewStorageFailureError("open", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketHashRecords); err != nil {
			return fmt.Errorf("failed to create hash_records bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.NewStorageFailureError("init", err)
	}

	return &BoltRepository{db: db, path: path}, nil
}

// Path returns the database file
func (r *BoltRepository) Path() string {
	return r.path
}

// boltKey joins service and principal with a null byte, which Key.Validate
// keeps out of both parts
func boltKey(key secrets.Key) []byte {
	return []byte(key.Service + "\x00" + key.Principal)
}

// Put persists a record, replacing any record with the same key
func (r *BoltRepository) Put(ctx context.Context, record *secrets.HashRecord) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewStorageFailureError("marshal", err)
	}

	err = r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketHashRecords)
		if bucket == nil {
			return fmt.Errorf("hash_records bucket not found")
		}
		return bucket.Put(boltKey(record.Key()), data)
	})
	if err != nil {
		return errors.NewStorageFailureError("put", err)
	}
	return nil
}

// Get returns the record for key
func (r *BoltRepository) Get(ctx context.Context, key secrets.Key) (*secrets.HashRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var record *secrets.HashRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketHashRecords)
		if bucket == nil {
			return fmt.Errorf("hash_records bucket not found")
		}

		data := bucket.Get(boltKey(key))
		if data == nil {
			return errors.NewNotFoundError("hash record", key.String())
		}

		decoded, err := r.decode(data)
		if err != nil {
			return err
		}
		record = decoded
		return nil
	})
	if err != nil {
		return nil, r.classify("get", err)
	}
	return record, nil
}

// List returns every record. bbolt iterates keys in byte order, which sorts
// by service then principal.
func (r *BoltRepository) List(ctx context.Context) ([]*secrets.HashRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var records []*secrets.HashRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketHashRecords)
		if bucket == nil {
			return fmt.Errorf("hash_records bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			record, err := r.decode(v)
			if err != nil {
				return err
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, r.classify("list", err)
	}
	return records, nil
}

// Close closes the database
func (r *BoltRepository) Close() error {
	return r.db.Close()
}

func (r *BoltRepository) decode(data []byte) (*secrets.HashRecord, error) {
	var record secrets.HashRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.NewCorruptStoreError(r.path, err)
	}
	if record.Hash == "" {
		return nil, errors.NewCorruptStoreError(r.path, fmt.Errorf("record %s has no hash", record.Key()))
	}
	return &record, nil
}

// classify keeps structured errors raised inside a transaction and wraps
// everything else as a storage failure
func (r *BoltRepository) classify(op string, err error) error {
	if errors.CodeOf(err) != "" {
		return err
	}
	return errors.NewStorageFailureError(op, err)
}
