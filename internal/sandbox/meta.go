package sandbox

import "fmt"

// MetaSchemaVersion is the only metadata schema this build reads or writes.
const MetaSchemaVersion = 1

// Meta is the per-sandbox metadata record, created once at sandbox creation.
// LastUsedAt is the only field rewritten afterwards.
type Meta struct {
	SchemaVersion int    `json:"schema_version"`
	Label         string `json:"label"`
	LabelKey      string `json:"label_key"`
	CreatedAt     string `json:"created_at"`
	LastUsedAt    string `json:"last_used_at,omitempty"`
}

// Validate checks structural integrity of a metadata record.
func (m Meta) Validate() error {
	if m.SchemaVersion != MetaSchemaVersion {
		return fmt.Errorf("unsupported sandbox metadata version %d", m.SchemaVersion)
	}
	if m.Label == "" || m.LabelKey == "" || m.CreatedAt == "" {
		return fmt.Errorf("invalid sandbox metadata")
	}
	return nil
}
