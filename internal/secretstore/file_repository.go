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
	"sort"
	"sync"

	"go.uber.org/zap"

	"authbridge/pkg/config"
	"authbridge/pkg/errors"
	"authbridge/pkg/secrets"
)

const fileFormatVersion = 1

// FileRepository keeps every hash record in a single JSON document. Writes
// rewrite the whole document through a temp file and rename, so the file on
// disk is always either the old or the new version.
type FileRepository struct {
	path   string
	logger *zap.Logger
	mu     sync.RWMutex
}

// fileData is the on-disk layout: service -> principal -> record
type fileData struct {
	Version  int                                        `json:"version"`
	Services map[string]map[string]*secrets.HashRecord `json:"services"`
}

// NewFileRepository creates a repository backed by the JSON file at path
func NewFileRepository(path string, logger *zap.Logger) *FileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRepository{path: path, logger: logger}
}

// Path returns the backing file
func (r *FileRepository) Path() string {
	return r.path
}

// Put persists a record, replacing any record with the same key
func (r *FileRepository) Put(ctx context.Context, record *secrets.HashRecord) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return err
	}

	principals, ok := data.Services[record.Service]
	if !ok {
		principals = make(map[string]*secrets.HashRecord)
		data.Services[record.Service] = principals
	}
	stored := *record
	principals[record.Principal] = &stored

	return r.save(data)
}

// Get returns the record for key
func (r *FileRepository) Get(ctx context.Context, key secrets.Key) (*secrets.HashRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := r.load()
	if err != nil {
		return nil, err
	}

	record, ok := data.Services[key.Service][key.Principal]
	if !ok {
		return nil, errors.NewNotFoundError("hash record", key.String())
	}
	found := *record
	return &found, nil
}

// List returns every record ordered by service then principal
func (r *FileRepository) List(ctx context.Context) ([]*secrets.HashRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := r.load()
	if err != nil {
		return nil, err
	}

	var result []*secrets.HashRecord
	for _, principals := range data.Services {
		for _, record := range principals {
			copied := *record
			result = append(result, &copied)
		}
	}
	sortRecords(result)
	return result, nil
}

// Close is a no-op; the file is not held open between calls
func (r *FileRepository) Close() error {
	return nil
}

// load reads the document. A missing file is an empty store; anything that
// does not parse is reported as corrupt and never replaced with an empty one.
func (r *FileRepository) load() (*fileData, error) {
	info, err := os.Stat(r.path)
	if os.IsNotExist(err) {
		return &fileData{
			Version:  fileFormatVersion,
			Services: make(map[string]map[string]*secrets.HashRecord),
		}, nil
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("stat", err)
	}

	if perm := info.Mode().Perm(); perm&0077 != 0 {
		r.logger.Warn("Secret store permissions too open, tightening",
			zap.String("path", r.path),
			zap.String("mode", perm.String()))
		if err := os.Chmod(r.path, config.SecureFileMode); err != nil {
			return nil, errors.NewStorageFailureError("chmod", err)
		}
	}

	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, errors.NewStorageFailureError("read", err)
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.NewCorruptStoreError(r.path, err)
	}
	if data.Version != fileFormatVersion {
		return nil, errors.NewCorruptStoreError(r.path, fmt.Errorf("unsupported format version %d", data.Version))
	}
	if data.Services == nil {
		data.Services = make(map[string]map[string]*secrets.HashRecord)
	}
	for service, principals := range data.Services {
		for principal, record := range principals {
			if record == nil || record.Hash == "" {
				return nil, errors.NewCorruptStoreError(r.path, fmt.Errorf("record %s/%s has no hash", service, principal))
			}
			record.Service = service
			record.Principal = principal
		}
	}

	return &data, nil
}

func (r *FileRepository) save(data *fileData) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.NewStorageFailureError("marshal", err)
	}
	if err := config.AtomicWriteFile(r.path, encoded, config.SecureFileMode); err != nil {
		return errors.NewStorageFailureError("write", err)
	}
	return nil
}

func sortRecords(records []*secrets.HashRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Service != records[j].Service {
			return records[i].Service < records[j].Service
		}
		return records[i].Principal < records[j].Principal
	})
}
