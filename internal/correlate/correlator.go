package correlate

import (
	"context"

	"github.com/relic-io/relic/internal/logger"
	"github.com/relic-io/relic/internal/terraform"
	"github.com/relic-io/relic/pkg/types"
)

// Correlator answers "which state declaration owns this physical resource"
// by querying every discovered state document's identifier index.
type Correlator struct {
	discovery *terraform.Discovery
	log       logger.Logger
}

// NewCorrelator creates a correlator over the given discovery.
func NewCorrelator(d *terraform.Discovery, log logger.Logger) *Correlator {
	return &Correlator{discovery: d, log: log}
}

// Resolve runs discovery for the mode and resolves one identifier.
func (c *Correlator) Resolve(ctx context.Context, resourceID string, mode terraform.Mode, explicitPath string) (*types.OwnershipVerdict, error) {
	discovered, err := c.discovery.Discover(ctx, mode, explicitPath)
	if err != nil {
		return nil, err
	}
	return ResolveAgainst(discovered, resourceID), nil
}

// Discover exposes the underlying discovery so callers resolving many
// identifiers can run it once and reuse the result.
func (c *Correlator) Discover(ctx context.Context, mode terraform.Mode, explicitPath string) ([]terraform.Discovered, error) {
	return c.discovery.Discover(ctx, mode, explicitPath)
}

// ResolveAgainst resolves one identifier against already-discovered
// documents. Pure: no I/O, deterministic for a given input.
//
// Hits under the identical address across documents collapse into one
// logical owner (same resource, multiple state copies). Hits under
// distinct addresses mark the verdict conflicted; the first hit in
// discovery order is the primary and every other distinct address is
// surfaced as a conflict, never silently dropped.
func ResolveAgainst(discovered []terraform.Discovered, resourceID string) *types.OwnershipVerdict {
	keys := lookupKeysFor(resourceID)

	verdict := &types.OwnershipVerdict{}
	seen := map[string]bool{}

	for _, d := range discovered {
		for _, key := range keys {
			entry, ok := terraform.FindByID(d.IDs, key)
			if !ok {
				continue
			}
			if seen[entry.Address] {
				break
			}
			seen[entry.Address] = true

			match := types.OwnershipMatch{
				Address:   entry.Address,
				Type:      entry.ResourceType,
				Source:    entry.Source,
				Workspace: terraform.ExtractWorkspace(entry.Source),
			}
			if verdict.Primary == nil {
				verdict.Managed = true
				verdict.Primary = &match
			} else {
				verdict.Conflicts = append(verdict.Conflicts, match)
			}
			break
		}
	}

	return verdict
}

// lookupKeysFor derives candidate IdMap keys. Inputs that do not match any
// known service pattern are looked up verbatim so resolution stays total.
func lookupKeysFor(resourceID string) []string {
	id, err := ParseIdentifier(resourceID)
	if err != nil {
		return []string{resourceID}
	}
	keys := id.LookupKeys()
	if id.Original != id.ResourceID && !contains(keys, id.Original) {
		keys = append(keys, id.Original)
	}
	return keys
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
