package registry

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldChange records a single field change for diff reporting.
type FieldChange struct {
	Field    string
	OldValue any
	NewValue any
}

// WriteResult reports what happened when the catalogue was edited.
type WriteResult struct {
	Path    string
	Changes []FieldChange
}

// Writer edits a catalogue file in place. Edits go through the YAML node
// tree so field order, comments and fields unknown to Model survive.
type Writer struct {
	path string
}

// NewWriter creates a Writer for the catalogue at path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Deprecate flags the model with key as deprecated. Keys are never removed.
func (w *Writer) Deprecate(key string) (*WriteResult, error) {
	doc, err := w.load()
	if err != nil {
		return nil, err
	}

	modelNode, err := findModel(doc, key)
	if err != nil {
		return nil, err
	}

	result := &WriteResult{Path: w.path}

	var existing Model
	if err := modelNode.Decode(&existing); err != nil {
		return nil, fmt.Errorf("decoding model %s: %w", key, err)
	}
	if existing.Deprecated {
		return result, nil
	}

	overlay, err := toNode(map[string]bool{"deprecated": true})
	if err != nil {
		return nil, err
	}
	mergeNodes(modelNode, overlay)

	result.Changes = append(result.Changes, FieldChange{Field: "deprecated", OldValue: false, NewValue: true})
	return result, w.save(doc)
}

// Version returns the version recorded in the catalogue file.
func (w *Writer) Version() (string, error) {
	doc, err := w.load()
	if err != nil {
		return "", err
	}
	v := mappingValue(doc.Content[0], "version")
	if v == nil {
		return "", fmt.Errorf("%s: no version field", w.path)
	}
	return v.Value, nil
}

// SetVersion rewrites the catalogue version.
func (w *Writer) SetVersion(version string) (*WriteResult, error) {
	doc, err := w.load()
	if err != nil {
		return nil, err
	}

	root := doc.Content[0]
	result := &WriteResult{Path: w.path}

	v := mappingValue(root, "version")
	if v != nil && v.Value == version {
		return result, nil
	}

	overlay, err := toNode(map[string]string{"version": version})
	if err != nil {
		return nil, err
	}
	var old any
	if v != nil {
		old = v.Value
	}
	mergeNodes(root, overlay)

	result.Changes = append(result.Changes, FieldChange{Field: "version", OldValue: old, NewValue: version})
	return result, w.save(doc)
}

func (w *Writer) load() (*yaml.Node, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: catalog is not a YAML mapping", w.path)
	}
	return &doc, nil
}

// save refuses to write a document that would no longer load.
func (w *Writer) save(doc *yaml.Node) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}

	if _, err := Load(buf.Bytes()); err != nil {
		return fmt.Errorf("edited catalog is invalid: %w", err)
	}

	return os.WriteFile(w.path, buf.Bytes(), 0o644)
}

func findModel(doc *yaml.Node, key string) (*yaml.Node, error) {
	models := mappingValue(doc.Content[0], "models")
	if models == nil || models.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("catalog has no models list")
	}
	for _, item := range models.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		if k := mappingValue(item, "key"); k != nil && k.Value == key {
			return item, nil
		}
	}
	return nil, &UnknownModelError{Key: key}
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func toNode(v any) (*yaml.Node, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling overlay: %w", err)
	}
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parsing overlay: %w", err)
	}
	return &n, nil
}

// mergeNodes overlays src mapping keys onto dst mapping, preserving dst order
// and any keys in dst not present in src.
func mergeNodes(dst, src *yaml.Node) *yaml.Node {
	if dst.Kind == yaml.DocumentNode && len(dst.Content) > 0 {
		dst = dst.Content[0]
	}
	if src.Kind == yaml.DocumentNode && len(src.Content) > 0 {
		src = src.Content[0]
	}

	if dst.Kind != yaml.MappingNode || src.Kind != yaml.MappingNode {
		return src
	}

	srcMap := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(src.Content); i += 2 {
		srcMap[src.Content[i].Value] = src.Content[i+1]
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(dst.Content); i += 2 {
		key := dst.Content[i].Value
		if srcVal, ok := srcMap[key]; ok {
			dst.Content[i+1] = srcVal
			seen[key] = true
		}
	}

	for i := 0; i+1 < len(src.Content); i += 2 {
		key := src.Content[i].Value
		if !seen[key] {
			dst.Content = append(dst.Content, src.Content[i], src.Content[i+1])
		}
	}

	return dst
}
