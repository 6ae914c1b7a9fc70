// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package storage

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

	"github.com/tomtom215/folio/internal/recommend"
	"github.com/tomtom215/folio/internal/recommend/embedding"
	"github.com/tomtom215/folio/internal/recommend/factors"
	"github.com/tomtom215/folio/internal/recommend/intent"
)

const fileSuffix = ".gob.gz"

// ErrNotFound is returned when no bundle exists for a name or version.
var ErrNotFound = errors.New("model not found")

// ErrChecksum is returned when a bundle's contents do not match its checksum.
var ErrChecksum = errors.New("model checksum mismatch")

// Metadata describes one stored bundle.
type Metadata struct {
	Name    string `json:"name"`
	Version int    `json:"version"`

	TrainedAt time.Time `json:"trained_at"`
	SavedAt   time.Time `json:"saved_at"`

	InteractionCount int `json:"interaction_count"`
	ItemCount        int `json:"item_count"`
	UserCount        int `json:"user_count"`

	// Checksum is the hex SHA-256 of the uncompressed bundle.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed bundle size.
	SizeBytes int64 `json:"size_bytes"`

	TrainingDurationMS int64 `json:"training_duration_ms"`

	FactorStatus string `json:"factor_status"`

	// TestRMSE is the held-out rating error of the factors, measured on
	// HeldOut ratings. HeldOut is zero when nothing was measured.
	TestRMSE float64 `json:"test_rmse"`
	HeldOut  int     `json:"held_out"`

	// Evaluation metrics; Eligible is zero when evaluation was skipped or
	// had no users to measure.
	Recall    float64 `json:"recall"`
	Precision float64 `json:"precision"`
	NDCG      float64 `json:"ndcg"`
	Eligible  int     `json:"eligible"`

	// Intent classifier holdout scores; IntentExamples is zero when no
	// classifier was trained or nothing was held out.
	IntentAccuracy  float64 `json:"intent_accuracy"`
	IntentPrecision float64 `json:"intent_precision"`
	IntentRecall    float64 `json:"intent_recall"`
	IntentExamples  int     `json:"intent_examples"`
}

// Bundle is the serializable state of a trained model.
type Bundle struct {
	// Items is the catalog in index order.
	Items []recommend.Item

	// UserIDs is the user index in row order.
	UserIDs []recommend.UserID

	Embedding embedding.State
	Factors   factors.State

	// Intent is nil when the cycle had no labelled reviews.
	Intent *intent.State
}

// storedFile is the on-disk format.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store manages versioned bundles in one directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// latest version per name
	versions map[string]int
}

// NewStore opens or creates a store at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}
	all, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
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

	found := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseModelFilename(entry.Name())
		if !ok {
			continue
		}
		found[name] = append(found[name], version)
	}
	for _, versions := range found {
		sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	}
	return found, nil
}

// parseModelFilename splits "folio_v3.gob.gz" into ("folio", 3).
func parseModelFilename(file string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(file, fileSuffix)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx < 1 {
		return "", 0, false
	}
	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version < 1 {
		return "", 0, false
	}
	return base[:idx], version, true
}

// Save writes bundle as the next version of name and returns the completed
// metadata. Version, Name, Checksum, SizeBytes and SavedAt are filled in.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, bundle *Bundle, meta Metadata) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(bundle); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta.Name = name
	meta.Version = s.versions[name] + 1
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()

	if err := s.writeFile(s.modelPath(name, meta.Version), storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return nil, err
	}
	s.versions[name] = meta.Version
	return &meta, nil
}

func (s *Store) writeFile(path string, sf storedFile) error {
	tmp, err := os.CreateTemp(s.baseDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }() //nolint:errcheck // no-op after a successful rename

	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish model file: %w", err)
	}
	return nil
}

// Load decodes a stored bundle into target. Version 0 loads the latest.
func (s *Store) Load(ctx context.Context, name string, version int, target *Bundle) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		if version, ok = s.versions[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
	}

	sf, err := s.readFile(s.modelPath(name, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s version %d", ErrNotFound, name, version)
		}
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksum, sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &sf.Metadata, nil
}

func (s *Store) readFile(path string) (*storedFile, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the store directory and a parsed name
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return &sf, nil
}

// LatestVersion returns the newest version stored for name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	return version, ok
}

// List returns the metadata of every stored version of name, newest first.
// Unreadable files are skipped.
func (s *Store) List(ctx context.Context, name string) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var out []Metadata
	for _, version := range all[name] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sf, err := s.readFile(s.modelPath(name, version))
		if err != nil {
			continue
		}
		out = append(out, sf.Metadata)
	}
	return out, nil
}

// Prune deletes all but the newest keep versions of name. It returns the
// number of files removed.
func (s *Store) Prune(ctx context.Context, name string, keep int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	keep = max(keep, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.scan()
	if err != nil {
		return 0, fmt.Errorf("read directory: %w", err)
	}

	removed := 0
	versions := all[name]
	for i := keep; i < len(versions); i++ {
		if err := os.Remove(s.modelPath(name, versions[i])); err != nil {
			return removed, fmt.Errorf("delete model: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) modelPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, fileSuffix))
}
