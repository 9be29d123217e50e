// Package catalog loads the assessment item sequences served by the stub backend.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dekdek-app/dekdek/internal/models"
)

// Loader manages loading and caching of the per-aspect item sequences
type Loader struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	aspects map[models.Aspect]*Sequence
}

// Sequence is the ordered list of items for one aspect
type Sequence struct {
	Aspect models.Aspect
	Name   string
	Items  []*models.AssessmentDetails
}

// aspectFile is the on-disk YAML shape
type aspectFile struct {
	Aspect string     `yaml:"aspect"`
	Name   string     `yaml:"name"`
	Items  []itemFile `yaml:"items"`
}

type itemFile struct {
	ID           int    `yaml:"id"`
	AgeRange     string `yaml:"age_range"`
	Name         string `yaml:"name"`
	Image        string `yaml:"image"`
	DeviceName   string `yaml:"device_name"`
	DeviceImage  string `yaml:"device_image"`
	DeviceDetail string `yaml:"device_detail"`
	Method       string `yaml:"method"`
	Succession   string `yaml:"succession"`
}

// NewLoader creates a new catalog loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		logger:  logger,
		aspects: make(map[models.Aspect]*Sequence),
	}
}

// LoadFromDir loads every YAML file in dir. Files that fail to load are
// logged and skipped; an error is returned only if nothing loaded.
func (l *Loader) LoadFromDir(dir string) error {
	l.logger.Info("loading catalog from directory", zap.String("dir", dir))

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			l.logger.Warn("failed to load catalog file", zap.String("file", file), zap.Error(err))
			continue
		}
		loaded++
	}

	l.logger.Info("catalog loaded", zap.Int("count", loaded), zap.Int("total_files", len(files)))

	if loaded == 0 {
		return fmt.Errorf("no catalog files loaded from %s", dir)
	}
	return nil
}

// LoadFromFile loads a single aspect sequence from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var af aspectFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	seq, err := af.sequence()
	if err != nil {
		return err
	}

	l.Add(seq)
	l.logger.Info("aspect loaded", zap.String("aspect", string(seq.Aspect)), zap.Int("items", len(seq.Items)))
	return nil
}

func (af aspectFile) sequence() (*Sequence, error) {
	aspect, err := models.ParseAspect(af.Aspect)
	if err != nil {
		return nil, err
	}
	if len(af.Items) == 0 {
		return nil, fmt.Errorf("aspect %s has no items", aspect)
	}

	seq := &Sequence{Aspect: aspect, Name: af.Name}
	seen := make(map[int]bool, len(af.Items))
	for _, it := range af.Items {
		if it.ID <= 0 {
			return nil, fmt.Errorf("aspect %s: item id must be positive", aspect)
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("aspect %s: duplicate item id %d", aspect, it.ID)
		}
		if strings.TrimSpace(it.Name) == "" {
			return nil, fmt.Errorf("aspect %s: item %d has no name", aspect, it.ID)
		}
		seen[it.ID] = true

		seq.Items = append(seq.Items, &models.AssessmentDetails{
			ID:           it.ID,
			Aspect:       aspect,
			AgeRange:     it.AgeRange,
			Name:         it.Name,
			Image:        orNone(it.Image),
			DeviceName:   orNone(it.DeviceName),
			DeviceImage:  orNone(it.DeviceImage),
			DeviceDetail: orNone(it.DeviceDetail),
			Method:       it.Method,
			Succession:   it.Succession,
		})
	}

	sort.Slice(seq.Items, func(i, j int) bool { return seq.Items[i].ID < seq.Items[j].ID })
	return seq, nil
}

// orNone fills omitted optional fields with the sentinel the clients expect
func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.None
	}
	return s
}

// Add programmatically adds or replaces a sequence
func (l *Loader) Add(seq *Sequence) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.aspects[seq.Aspect] = seq
}

// Get returns the sequence of an aspect, or nil
func (l *Loader) Get(aspect models.Aspect) *Sequence {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.aspects[aspect]
}

// List returns all loaded sequences in presentation order
func (l *Loader) List() []*Sequence {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Sequence, 0, len(l.aspects))
	for _, aspect := range models.Aspects() {
		if seq, ok := l.aspects[aspect]; ok {
			result = append(result, seq)
		}
	}
	return result
}

// Item returns an item by id, or nil
func (s *Sequence) Item(id int) *models.AssessmentDetails {
	for _, it := range s.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// After returns the item following id, or nil at the end of the sequence
func (s *Sequence) After(id int) *models.AssessmentDetails {
	for i, it := range s.Items {
		if it.ID == id && i+1 < len(s.Items) {
			return s.Items[i+1]
		}
	}
	return nil
}

// Position returns the 0-based index of id, or -1
func (s *Sequence) Position(id int) int {
	for i, it := range s.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
