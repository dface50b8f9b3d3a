// Package media stores query and result images on disk.
package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nam-ha/human-detection-app/internal/imagecodec"
)

const (
	queriesDir = "queries"
	resultsDir = "results"
)

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// EnsureDirs creates the queries and results folders under the root
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{queriesDir, resultsDir} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0755); err != nil {
			return fmt.Errorf("failed to create media folder %s: %w", dir, err)
		}
	}
	return nil
}

// Paths holds where one prediction's images were written
type Paths struct {
	Key    string
	Query  string
	Result string
}

// Save writes both images as PNG under a fresh random key
func (s *Store) Save(queryB64, resultB64 string) (*Paths, error) {
	key := uuid.NewString()
	p := &Paths{
		Key:    key,
		Query:  filepath.Join(s.root, queriesDir, key+".png"),
		Result: filepath.Join(s.root, resultsDir, key+".png"),
	}

	if err := imagecodec.SaveAsPNG(queryB64, p.Query); err != nil {
		return nil, fmt.Errorf("failed to save query image: %w", err)
	}
	if err := imagecodec.SaveAsPNG(resultB64, p.Result); err != nil {
		os.Remove(p.Query)
		return nil, fmt.Errorf("failed to save result image: %w", err)
	}

	return p, nil
}
