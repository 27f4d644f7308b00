package terraform

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	relicerrors "github.com/relic-io/relic/internal/errors"
)

// SupportedStateVersion is the only state schema we accept. Anything else
// is rejected, never coerced.
const SupportedStateVersion = 4

// StateDocument represents a parsed Terraform state file (v4 format).
type StateDocument struct {
	Version          int             `json:"version"`
	TerraformVersion string          `json:"terraform_version"`
	Serial           int             `json:"serial"`
	Lineage          string          `json:"lineage"`
	Resources        []StateResource `json:"resources"`
}

// StateResource represents a resource block in Terraform state.
type StateResource struct {
	Mode      string             `json:"mode"`
	Type      string             `json:"type"`
	Name      string             `json:"name"`
	Provider  string             `json:"provider"`
	Module    string             `json:"module,omitempty"`
	Instances []ResourceInstance `json:"instances"`
}

// ResourceInstance represents one instance of a resource.
type ResourceInstance struct {
	SchemaVersion int                    `json:"schema_version"`
	IndexKey      interface{}            `json:"index_key,omitempty"`
	Attributes    map[string]interface{} `json:"attributes"`
	Dependencies  []string               `json:"dependencies,omitempty"`
}

// StateParser parses Terraform state documents.
type StateParser struct{}

// NewStateParser creates a new state parser.
func NewStateParser() *StateParser {
	return &StateParser{}
}

// ParseFile reads and parses a state file from disk.
func (p *StateParser) ParseFile(path string) (*StateDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, relicerrors.Newf(relicerrors.KindNotFound, "state file not found: %s", path)
		}
		return nil, relicerrors.Wrap(relicerrors.KindNotFound, "cannot read state file", err).WithSource(path)
	}
	doc, err := p.Parse(data)
	if err != nil {
		var re *relicerrors.Error
		if errors.As(err, &re) {
			re.WithSource(path)
		}
		return nil, err
	}
	return doc, nil
}

// Parse parses raw state JSON. Malformed JSON is a parse error; any schema
// version other than 4 is an unsupported-version error.
func (p *StateParser) Parse(data []byte) (*StateDocument, error) {
	var doc StateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, relicerrors.Wrap(relicerrors.KindParse, "invalid state JSON", err)
	}
	if doc.Version != SupportedStateVersion {
		return nil, relicerrors.Newf(relicerrors.KindUnsupportedVersion,
			"unsupported state version %d (want %d)", doc.Version, SupportedStateVersion)
	}
	return &doc, nil
}

// Address derives the fully-qualified Terraform address for an instance of
// a resource: type.name, with the instance index suffix for count/for_each
// resources and the module path prefix when present.
func Address(r StateResource, inst ResourceInstance) string {
	addr := r.Type + "." + r.Name
	switch idx := inst.IndexKey.(type) {
	case nil:
	case string:
		addr = fmt.Sprintf("%s[%q]", addr, idx)
	case float64:
		// JSON numbers decode as float64; count indexes are integers.
		addr = fmt.Sprintf("%s[%d]", addr, int(idx))
	default:
		addr = fmt.Sprintf("%s[%v]", addr, idx)
	}
	if r.Module != "" {
		addr = r.Module + "." + addr
	}
	return addr
}
