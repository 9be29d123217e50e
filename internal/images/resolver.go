// Package images maps image filenames sent by the backend to bundled assets.
package images

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dekdek-app/dekdek/internal/models"
)

//go:embed manifest.yaml
var bundledManifest []byte

// Asset is a resolved image
type Asset struct {
	Key      string
	Path     string
	Fallback bool
}

// Resolver looks up assets by aspect and filename. It is safe for
// concurrent use since it is never mutated after construction.
type Resolver struct {
	fallback string
	aspects  map[models.Aspect]map[string]string
	devices  map[string]string
}

type manifestFile struct {
	Fallback string                       `yaml:"fallback"`
	Aspects  map[string]map[string]string `yaml:"aspects"`
	Devices  map[string]string            `yaml:"devices"`
}

// Parse builds a resolver from a YAML manifest
func Parse(data []byte) (*Resolver, error) {
	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse image manifest: %w", err)
	}
	if mf.Fallback == "" {
		return nil, fmt.Errorf("image manifest has no fallback")
	}

	r := &Resolver{
		fallback: mf.Fallback,
		aspects:  make(map[models.Aspect]map[string]string, len(mf.Aspects)),
		devices:  mf.Devices,
	}
	for code, entries := range mf.Aspects {
		aspect, err := models.ParseAspect(code)
		if err != nil {
			return nil, fmt.Errorf("image manifest: %w", err)
		}
		r.aspects[aspect] = entries
	}
	return r, nil
}

var defaultResolver = mustParse(bundledManifest)

func mustParse(data []byte) *Resolver {
	r, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the resolver for the bundled manifest
func Default() *Resolver {
	return defaultResolver
}

// Resolve returns the asset for a filename in an aspect's table,
// or the fallback asset. It never fails.
func (r *Resolver) Resolve(aspect models.Aspect, key string) Asset {
	key = normalize(key)
	if path, ok := r.aspects[aspect][key]; ok {
		return Asset{Key: key, Path: path}
	}
	return r.Fallback(key)
}

// ResolveDevice returns the asset for a device image
func (r *Resolver) ResolveDevice(key string) Asset {
	key = normalize(key)
	if path, ok := r.devices[key]; ok {
		return Asset{Key: key, Path: path}
	}
	return r.Fallback(key)
}

// Fallback returns the fixed placeholder asset
func (r *Resolver) Fallback(key string) Asset {
	return Asset{Key: key, Path: r.fallback, Fallback: true}
}

// Count returns how many entries an aspect's table holds
func (r *Resolver) Count(aspect models.Aspect) int {
	return len(r.aspects[aspect])
}

// normalize strips any URL path the backend may prefix the filename with
func normalize(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	return key
}

// Resolve uses the bundled manifest
func Resolve(aspect models.Aspect, key string) Asset {
	return defaultResolver.Resolve(aspect, key)
}
