// Package schemacache loads the schema snapshot the background crawler
// writes and serves read-only lookups for autocomplete and navigation. The
// result-viewing engine has no dependency on it.
package schemacache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Snapshot struct {
	Version        int                 `json:"version"`
	LastRefreshed  int64               `json:"last_refreshed"`
	Databases      map[string]Database `json:"databases"`
	AvailableRoles []string            `json:"available_roles,omitempty"`
	CurrentRole    string              `json:"current_role,omitempty"`
}

type Database struct {
	Name          string            `json:"name"`
	Comment       string            `json:"comment,omitempty"`
	Owner         string            `json:"owner,omitempty"`
	LastRefreshed int64             `json:"last_refreshed"`
	Schemas       map[string]Schema `json:"schemas"`
}

type Schema struct {
	Name          string            `json:"name"`
	Database      string            `json:"database"`
	Comment       string            `json:"comment,omitempty"`
	Owner         string            `json:"owner,omitempty"`
	LastRefreshed int64             `json:"last_refreshed"`
	Objects       map[string]Object `json:"objects"`
}

type ObjectType string

const (
	ObjectTable     ObjectType = "table"
	ObjectView      ObjectType = "view"
	ObjectFunction  ObjectType = "function"
	ObjectProcedure ObjectType = "procedure"
)

type Object struct {
	Name          string     `json:"name"`
	Type          ObjectType `json:"object_type"`
	Comment       string     `json:"comment,omitempty"`
	Owner         string     `json:"owner,omitempty"`
	LastRefreshed int64      `json:"last_refreshed"`
	RowCount      int64      `json:"row_count,omitempty"`
	Bytes         int64      `json:"bytes,omitempty"`
	Columns       []Column   `json:"columns,omitempty"`
}

type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
	Comment  string `json:"comment,omitempty"`
}

// Load reads a snapshot file. A missing file is not an error: autocomplete
// degrades to nothing until the crawler has run once.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Snapshot{Databases: map[string]Database{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema cache: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode schema cache: %w", err)
	}
	if snap.Databases == nil {
		snap.Databases = map[string]Database{}
	}
	return &snap, nil
}

// Save writes the snapshot atomically (temp file + rename), for the
// crawler's benefit.
func Save(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema cache: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create schema cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".schema_cache-*")
	if err != nil {
		return fmt.Errorf("create schema cache temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write schema cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close schema cache: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace schema cache: %w", err)
	}
	return nil
}

// Lookup resolves one object by its (database, schema, object) key,
// case-insensitively.
func (s *Snapshot) Lookup(database, schema, object string) (Object, bool) {
	db, ok := findKey(s.Databases, database)
	if !ok {
		return Object{}, false
	}
	sc, ok := findKey(db.Schemas, schema)
	if !ok {
		return Object{}, false
	}
	return findKey(sc.Objects, object)
}

// SearchObjects returns fully qualified names of objects whose name starts
// with prefix, sorted, capped at limit.
func (s *Snapshot) SearchObjects(prefix string, limit int) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for dbName, db := range s.Databases {
		for scName, sc := range db.Schemas {
			for objName := range sc.Objects {
				if strings.HasPrefix(strings.ToLower(objName), prefix) {
					out = append(out, dbName+"."+scName+"."+objName)
				}
			}
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func findKey[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}
