package terraform

import (
	"context"
	"fmt"
	"os"
	"sync"

	relicerrors "github.com/relic-io/relic/internal/errors"
	"github.com/relic-io/relic/internal/logger"
)

// Mode selects how candidate state documents are located.
type Mode string

const (
	ModeExplicit Mode = "explicit"
	ModeLocal    Mode = "local"
	ModeRemote   Mode = "remote"
	// ModeHybrid concatenates local then remote results; local sources come
	// first and therefore win primary-match selection on conflicts.
	ModeHybrid Mode = "hybrid"
)

// StateSource identifies one candidate state document at its origin.
type StateSource struct {
	Identity  string `json:"identity"`
	ModMarker string `json:"mod_marker,omitempty"`
}

// Store is the storage-listing collaborator behind local and remote scans.
type Store interface {
	// List enumerates candidate *.tfstate sources in a stable order.
	List(ctx context.Context) ([]StateSource, error)
	// Fetch returns the raw bytes of one source.
	Fetch(ctx context.Context, src StateSource) ([]byte, error)
}

// Discovered pairs a source with its parsed document and identifier index.
type Discovered struct {
	Source   StateSource
	Document *StateDocument
	IDs      IDMap
	Skipped  int
}

// Discovery locates state documents and feeds them through the parser.
type Discovery struct {
	parser  *StateParser
	local   Store
	remote  Store
	cache   *IDMapCache
	log     logger.Logger
	workers int
}

// DiscoveryOption configures a Discovery.
type DiscoveryOption func(*Discovery)

// WithLocalStore sets the collaborator used by local scans.
func WithLocalStore(s Store) DiscoveryOption { return func(d *Discovery) { d.local = s } }

// WithRemoteStore sets the collaborator used by remote scans.
func WithRemoteStore(s Store) DiscoveryOption { return func(d *Discovery) { d.remote = s } }

// WithCache sets the IdMap cache.
func WithCache(c *IDMapCache) DiscoveryOption { return func(d *Discovery) { d.cache = c } }

// WithWorkers bounds the parse fan-out.
func WithWorkers(n int) DiscoveryOption {
	return func(d *Discovery) {
		if n > 0 {
			d.workers = n
		}
	}
}

// NewDiscovery creates a Discovery with the given logger and options.
func NewDiscovery(log logger.Logger, opts ...DiscoveryOption) *Discovery {
	d := &Discovery{
		parser:  NewStateParser(),
		log:     log,
		workers: 4,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover produces the ordered sequence of parsed state documents for the
// given mode. Per-document parse failures during scans are logged and
// skipped so one corrupt file never blocks discovery of the rest; in
// explicit mode a missing or unparseable document is fatal to the call.
func (d *Discovery) Discover(ctx context.Context, mode Mode, explicitPath string) ([]Discovered, error) {
	switch mode {
	case ModeExplicit:
		doc, err := d.parser.ParseFile(explicitPath)
		if err != nil {
			return nil, err
		}
		src := StateSource{Identity: explicitPath, ModMarker: fileMarker(explicitPath)}
		ids, skipped := BuildIDMap(doc, src.Identity)
		return []Discovered{{Source: src, Document: doc, IDs: ids, Skipped: skipped}}, nil

	case ModeLocal:
		return d.scan(ctx, d.local, "local")

	case ModeRemote:
		return d.scan(ctx, d.remote, "remote")

	case ModeHybrid:
		local, err := d.scan(ctx, d.local, "local")
		if err != nil {
			return nil, err
		}
		remote, err := d.scan(ctx, d.remote, "remote")
		if err != nil {
			return nil, err
		}
		return append(local, remote...), nil

	default:
		return nil, relicerrors.Newf(relicerrors.KindValidation, "unknown discovery mode %q", mode)
	}
}

// scan lists sources from one store and parses them across a bounded worker
// pool. Output order follows listing order regardless of completion order.
func (d *Discovery) scan(ctx context.Context, store Store, label string) ([]Discovered, error) {
	if store == nil {
		d.log.WithField("scope", label).Debug("no state store configured, skipping scan")
		return nil, nil
	}

	sources, err := store.List(ctx)
	if err != nil {
		return nil, relicerrors.Classify(err)
	}

	results := make([]*Discovered, len(sources))
	jobs := make(chan int)

	workers := d.workers
	if len(sources) < workers {
		workers = len(sources)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = d.loadSource(ctx, store, sources[i])
			}
		}()
	}

	for i := range sources {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, relicerrors.Wrap(relicerrors.KindInternal, "discovery cancelled", ctx.Err())
		}
	}
	close(jobs)
	wg.Wait()

	discovered := make([]Discovered, 0, len(sources))
	for _, r := range results {
		if r != nil {
			discovered = append(discovered, *r)
		}
	}
	return discovered, nil
}

// loadSource parses one source, consulting the cache first. Returns nil
// when the document cannot be parsed; the skip is logged, not fatal.
func (d *Discovery) loadSource(ctx context.Context, store Store, src StateSource) *Discovered {
	if d.cache != nil {
		if cached, ok := d.cache.Get(src.Identity, src.ModMarker); ok {
			return cached
		}
	}

	data, err := store.Fetch(ctx, src)
	if err != nil {
		d.log.WithField("source", src.Identity).Error("skipping state document: fetch failed", err)
		return nil
	}

	doc, err := d.parser.Parse(data)
	if err != nil {
		d.log.WithField("source", src.Identity).Error("skipping state document: parse failed", err)
		return nil
	}

	ids, skipped := BuildIDMap(doc, src.Identity)
	if skipped > 0 {
		d.log.WithFields(map[string]interface{}{
			"source":  src.Identity,
			"skipped": skipped,
		}).Debug("instances without identifying attribute")
	}

	result := &Discovered{Source: src, Document: doc, IDs: ids, Skipped: skipped}
	if d.cache != nil {
		d.cache.Put(src.Identity, src.ModMarker, result)
	}
	return result
}

func fileMarker(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size())
}
