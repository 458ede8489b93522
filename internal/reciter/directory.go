package reciter

import (
	"context"
	"fmt"
	"sync"

	"github.com/alnah/go-tilawa/internal/quran"
)

// getter downloads a URL. *fetch.Fetcher satisfies it.
type getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Directory lazily loads the manifest once and answers from the cache for
// its lifetime. It is safe for concurrent use.
type Directory struct {
	client getter
	url    string

	mu       sync.Mutex
	manifest *Manifest
}

// NewDirectory creates a Directory backed by the manifest at url.
func NewDirectory(client getter, url string) *Directory {
	return &Directory{client: client, url: url}
}

// NewDirectoryFromManifest creates a Directory that never touches the network.
func NewDirectoryFromManifest(m *Manifest) *Directory {
	return &Directory{manifest: m}
}

// EnsureLoaded fetches and parses the manifest on first use. Concurrent
// callers wait for the first load; a failed load is retried on the next call.
func (d *Directory) EnsureLoaded(ctx context.Context) (*Manifest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.manifest != nil {
		return d.manifest, nil
	}

	data, err := d.client.Get(ctx, d.url)
	if err != nil {
		return nil, fmt.Errorf("load recitations manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	d.manifest = m
	return m, nil
}

// Resolve returns the reciter with the given id.
func (d *Directory) Resolve(ctx context.Context, id int) (Config, error) {
	m, err := d.EnsureLoaded(ctx)
	if err != nil {
		return Config{}, err
	}
	return m.Reciter(id)
}

// Validate checks one surah/ayah pair against the manifest's ayah counts.
func (d *Directory) Validate(ctx context.Context, surah, ayah int) error {
	m, err := d.EnsureLoaded(ctx)
	if err != nil {
		return err
	}
	return m.Validate(surah, ayah)
}

// ValidateRange checks a whole range and its reciter, returning the reciter.
func (d *Directory) ValidateRange(ctx context.Context, r quran.Range) (Config, error) {
	m, err := d.EnsureLoaded(ctx)
	if err != nil {
		return Config{}, err
	}
	if err := m.ValidateRange(r); err != nil {
		return Config{}, err
	}
	return m.Reciter(r.ReciterID)
}

// List returns every reciter sorted by name.
func (d *Directory) List(ctx context.Context) ([]Config, error) {
	m, err := d.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return m.List(), nil
}

// Search returns reciters whose name contains term.
func (d *Directory) Search(ctx context.Context, term string) ([]Config, error) {
	m, err := d.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return m.Search(term), nil
}

// ByBitrate returns reciters with the given bitrate, e.g. "128kbps".
func (d *Directory) ByBitrate(ctx context.Context, bitrate string) ([]Config, error) {
	m, err := d.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return m.ByBitrate(bitrate), nil
}
