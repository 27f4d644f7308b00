package correlate

import (
	"regexp"
	"strings"

	relicerrors "github.com/relic-io/relic/internal/errors"
)

// Identifier is a parsed resource input: either a full ARN or a bare
// physical ID, resolved to a service and the terraform types that can
// declare it.
type Identifier struct {
	Service        string
	ResourceID     string
	TerraformTypes []string
	Original       string
}

type servicePattern struct {
	service   string
	arn       *regexp.Regexp
	bare      *regexp.Regexp
	tfTypes   []string
	lookupFor func(id string) []string
}

// Pattern order matters for bare IDs: most specific first. The i- prefix is
// unambiguous; lowercase-only bucket names are tried before RDS identifiers.
var servicePatterns = []servicePattern{
	{
		service: "ec2",
		arn:     regexp.MustCompile(`^arn:aws:ec2:[^:]*:[^:]*:instance/(i-[a-z0-9]+)$`),
		bare:    regexp.MustCompile(`^(i-[a-z0-9]+)$`),
		tfTypes: []string{"aws_instance"},
		lookupFor: func(id string) []string {
			return []string{id}
		},
	},
	{
		service: "s3",
		arn:     regexp.MustCompile(`^arn:aws:s3:::([a-z0-9][a-z0-9.-]{1,61}[a-z0-9])$`),
		bare:    regexp.MustCompile(`^([a-z0-9][a-z0-9.-]{1,61}[a-z0-9])$`),
		tfTypes: []string{"aws_s3_bucket"},
		lookupFor: func(id string) []string {
			// State indexes buckets in ARN form; accept either spelling.
			return []string{"arn:aws:s3:::" + id, id}
		},
	},
	{
		service: "rds",
		arn:     regexp.MustCompile(`^arn:aws:rds:[^:]*:[^:]*:db:([a-zA-Z][a-zA-Z0-9-]*)$`),
		bare:    regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]{0,62})$`),
		tfTypes: []string{"aws_db_instance"},
		lookupFor: func(id string) []string {
			return []string{id}
		},
	},
}

// ParseIdentifier parses an ARN or bare resource ID. Unparseable input is a
// validation error, never a panic.
func ParseIdentifier(input string) (Identifier, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Identifier{}, relicerrors.New(relicerrors.KindValidation, "empty resource identifier")
	}

	for _, p := range servicePatterns {
		if m := p.arn.FindStringSubmatch(trimmed); m != nil {
			return Identifier{Service: p.service, ResourceID: m[1], TerraformTypes: p.tfTypes, Original: trimmed}, nil
		}
	}
	for _, p := range servicePatterns {
		if m := p.bare.FindStringSubmatch(trimmed); m != nil {
			return Identifier{Service: p.service, ResourceID: m[1], TerraformTypes: p.tfTypes, Original: trimmed}, nil
		}
	}

	return Identifier{}, relicerrors.Newf(relicerrors.KindValidation, "cannot parse resource identifier %q", trimmed)
}

// LookupKeys returns the physical-identifier spellings to try against an
// IdMap, most canonical first.
func (id Identifier) LookupKeys() []string {
	for _, p := range servicePatterns {
		if p.service == id.Service {
			return p.lookupFor(id.ResourceID)
		}
	}
	return []string{id.ResourceID}
}
