package terraform

import "strings"

// IDEntry maps a physical identifier back to its state declaration.
type IDEntry struct {
	Address      string `json:"address"`
	ResourceType string `json:"resource_type"`
	Source       string `json:"source"`
}

// IDMap is the index from physical identifier (cloud ID or ARN) to the
// declaring address. Keys are unique within one parsed document; uniqueness
// across documents is not assumed — that is what conflict detection is for.
type IDMap map[string]IDEntry

// extractor pulls the physical identifier out of an instance's attributes.
// Returns false when the expected attribute is missing, so the instance is
// skipped rather than failing the whole load.
type extractor func(attrs map[string]interface{}) (string, bool)

func stringAttr(attrs map[string]interface{}, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// The identifying attribute is not uniform across resource types, so each
// supported type registers its own rule. Unlisted aws_* types fall back to
// the plain id attribute.
var idExtractors = map[string]extractor{
	"aws_instance": func(attrs map[string]interface{}) (string, bool) {
		return stringAttr(attrs, "id")
	},
	"aws_s3_bucket": func(attrs map[string]interface{}) (string, bool) {
		if arn, ok := stringAttr(attrs, "arn"); ok {
			return arn, true
		}
		if bucket, ok := stringAttr(attrs, "bucket"); ok {
			return "arn:aws:s3:::" + bucket, true
		}
		return "", false
	},
	"aws_db_instance": func(attrs map[string]interface{}) (string, bool) {
		if id, ok := stringAttr(attrs, "identifier"); ok {
			return id, true
		}
		return stringAttr(attrs, "id")
	},
}

func extractorFor(resourceType string) (extractor, bool) {
	if ex, ok := idExtractors[resourceType]; ok {
		return ex, true
	}
	if strings.HasPrefix(resourceType, "aws_") {
		return func(attrs map[string]interface{}) (string, bool) {
			return stringAttr(attrs, "id")
		}, true
	}
	return nil, false
}

// BuildIDMap walks every managed resource instance in the document and
// indexes its physical identifier. Instances whose attributes lack the
// identifying field are counted in skipped, never fatal. The first
// declaration wins within a single document.
func BuildIDMap(doc *StateDocument, source string) (ids IDMap, skipped int) {
	ids = make(IDMap)
	for _, res := range doc.Resources {
		if res.Mode != "" && res.Mode != "managed" {
			continue
		}
		ex, ok := extractorFor(res.Type)
		if !ok {
			skipped += len(res.Instances)
			continue
		}
		for _, inst := range res.Instances {
			id, ok := ex(inst.Attributes)
			if !ok {
				skipped++
				continue
			}
			if _, exists := ids[id]; exists {
				continue
			}
			ids[id] = IDEntry{
				Address:      Address(res, inst),
				ResourceType: res.Type,
				Source:       source,
			}
		}
	}
	return ids, skipped
}

// FindByID is an exact-match lookup; no fuzzy matching, no side effects.
func FindByID(ids IDMap, id string) (IDEntry, bool) {
	entry, ok := ids[id]
	return entry, ok
}
