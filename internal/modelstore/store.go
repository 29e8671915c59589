// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package modelstore persists trained model snapshots.
//
// Snapshots are gob-encoded, checksummed with SHA-256 and gzip-compressed.
// Each model name keeps a monotonically increasing version; files are named
// {name}_v{version}.gob.gz and written through a temporary file and rename so
// a crash never leaves a half-written snapshot behind.
package modelstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const fileSuffix = ".gob.gz"

var (
	// ErrModelNotFound is returned when no snapshot exists for a name/version.
	ErrModelNotFound = errors.New("model not found")

	// ErrChecksumMismatch is returned when a snapshot fails verification.
	ErrChecksumMismatch = errors.New("model checksum mismatch")
)

// Metadata describes a stored snapshot.
type Metadata struct {
	Name               string             `json:"name"`
	Version            int                `json:"version"`
	ModelVersion       string             `json:"model_version"`
	TrainedAt          time.Time          `json:"trained_at"`
	SavedAt            time.Time          `json:"saved_at"`
	SampleCount        int                `json:"sample_count"`
	FeatureCount       int                `json:"feature_count"`
	Metrics            map[string]float64 `json:"metrics,omitempty"`
	Checksum           string             `json:"checksum"`
	SizeBytes          int64              `json:"size_bytes"`
	TrainingDurationMS int64              `json:"training_duration_ms"`
}

// storedFile is the on-disk envelope.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store manages snapshot files in a single directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	versions map[string]int
}

// New opens (creating if needed) a store rooted at baseDir.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}

	s := &Store{baseDir: baseDir, versions: make(map[string]int)}
	all, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan model directory: %w", err)
	}
	for name, versions := range all {
		s.versions[name] = versions[0]
	}
	return s, nil
}

// scan returns every stored version per name, newest first.
func (s *Store) scan() (map[string][]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseFilename(entry.Name())
		if !ok {
			continue
		}
		out[name] = append(out[name], version)
	}
	for name := range out {
		sort.Sort(sort.Reverse(sort.IntSlice(out[name])))
	}
	return out, nil
}

// parseFilename splits "risk_predictor_v3.gob.gz" into ("risk_predictor", 3).
func parseFilename(file string) (string, int, bool) {
	base, ok := strings.CutSuffix(file, fileSuffix)
	if !ok {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version <= 0 {
		return "", 0, false
	}
	return base[:idx], version, true
}

func (s *Store) path(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, fileSuffix))
}

// NextVersion returns the version a new snapshot of name should use.
func (s *Store) NextVersion(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[name] + 1
}

// LatestVersion returns the newest stored version of name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[name]
	return v, ok
}

// Save writes data as version of name. Name, Version, Checksum, SizeBytes
// and SavedAt in meta are filled in by the store.
func (s *Store) Save(ctx context.Context, name string, version int, data any, meta Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	sum := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("failed to compress model: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize compression: %w", err)
	}

	meta.Name = name
	meta.Version = version
	meta.Checksum = hex.EncodeToString(sum[:])
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) } //nolint:errcheck // best-effort cleanup

	if err := gob.NewEncoder(tmp).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		cleanup()
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		cleanup()
		return fmt.Errorf("failed to sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(name, version)); err != nil {
		cleanup()
		return fmt.Errorf("failed to commit model file: %w", err)
	}

	if version > s.versions[name] {
		s.versions[name] = version
	}
	return nil
}

// Load decodes version of name into target. Version 0 loads the latest.
func (s *Store) Load(ctx context.Context, name string, version int, target any) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		latest, ok := s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		version = latest
	}

	sf, err := s.readFile(name, version)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress model: %w", err)
	}
	defer func() { _ = gz.Close() }() //nolint:errcheck // read-only

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to read decompressed model: %w", err)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != sf.Metadata.Checksum {
		return nil, fmt.Errorf("%w: %s v%d expected %s, got %s", ErrChecksumMismatch, name, version, sf.Metadata.Checksum, got)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return &sf.Metadata, nil
}

func (s *Store) readFile(name string, version int) (*storedFile, error) {
	f, err := os.Open(s.path(name, version))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s v%d", ErrModelNotFound, name, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return &sf, nil
}

// List returns metadata for the latest snapshot of every model, sorted by name.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Metadata, 0, len(names))
	for _, name := range names {
		sf, err := s.readFile(name, s.versions[name])
		if err != nil {
			continue
		}
		out = append(out, sf.Metadata)
	}
	return out, nil
}

// Delete removes one version of name.
func (s *Store) Delete(ctx context.Context, name string, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name, version)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s v%d", ErrModelNotFound, name, version)
		}
		return fmt.Errorf("failed to delete model: %w", err)
	}
	return s.refreshLocked(name)
}

// Prune keeps the newest keep versions of name and removes the rest.
func (s *Store) Prune(ctx context.Context, name string, keep int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.scan()
	if err != nil {
		return fmt.Errorf("failed to scan model directory: %w", err)
	}
	versions := all[name]
	for i := keep; i < len(versions); i++ {
		if err := os.Remove(s.path(name, versions[i])); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to prune %s v%d: %w", name, versions[i], err)
		}
	}
	return s.refreshLocked(name)
}

func (s *Store) refreshLocked(name string) error {
	all, err := s.scan()
	if err != nil {
		return fmt.Errorf("failed to scan model directory: %w", err)
	}
	if versions := all[name]; len(versions) > 0 {
		s.versions[name] = versions[0]
	} else {
		delete(s.versions, name)
	}
	return nil
}
