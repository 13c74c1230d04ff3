package mutate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bashhack/gitbackfill/internal/catalog"
	"github.com/bashhack/gitbackfill/internal/errors"
)

// errMalformed marks structured content that does not parse. Such files
// get a comment line appended instead of a structural edit.
var errMalformed = errors.New("malformed structured data")

// updateRecord is one element of the update list marker.
type updateRecord struct {
	Week        int    `json:"week,omitempty" yaml:"week,omitempty"`
	Date        string `json:"date" yaml:"date"`
	Description string `json:"description" yaml:"description"`
}

func (m *Mutator) record(note Note, fresh bool) updateRecord {
	desc := note.Description
	if desc == "" {
		desc = "Feature enhancements"
		if fresh {
			desc = "Initial development"
		}
	}
	rec := updateRecord{Date: note.Timestamp.Format(MinuteLayout), Description: desc}
	if note.Label != "" {
		rec.Week = note.Unit
	}
	return rec
}

func (m *Mutator) patchStructured(file catalog.File, note Note) error {
	exists, err := afero.Exists(m.fs, file.Path)
	if err != nil {
		return err
	}

	var data []byte
	if exists {
		if data, err = afero.ReadFile(m.fs, file.Path); err != nil {
			return err
		}
	}

	var out []byte
	if file.IsYAML() {
		out, err = m.patchYAML(data, note, !exists)
	} else {
		out, err = m.patchJSON(data, note, !exists)
	}
	if errors.Is(err, errMalformed) {
		return m.appendText(file.Path, malformedLine(file, note))
	}
	if err != nil {
		return err
	}

	return afero.WriteFile(m.fs, file.Path, out, 0o644)
}

// malformedLine is appended to structured files that fail to parse.
func malformedLine(file catalog.File, note Note) string {
	c := file.Comment
	if c.Open == "" {
		c = catalog.Comment{Open: "//"}
	}
	stamp := note.Timestamp.Format(MinuteLayout)
	if note.Label != "" {
		return "\n" + c.Wrap(note.Label+" - "+stamp) + "\n"
	}
	return "\n" + c.Wrap("Update: "+stamp) + "\n"
}

// member is one top-level key of a JSON object, kept in source order.
type member struct {
	key   string
	value json.RawMessage
}

// decodeObject splits a JSON object into its members without reordering
// them. Anything that is not exactly one JSON value is malformed; a valid
// value that is not an object is an error of its own.
func decodeObject(data []byte) ([]member, error) {
	if !json.Valid(data) {
		return nil, errMalformed
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errMalformed
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("top-level JSON value is not an object")
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errMalformed
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errMalformed
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errMalformed
		}
		members = append(members, member{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, errMalformed
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errMalformed
	}
	return members, nil
}

// encodeObject writes members as a JSON object with two-space indentation.
func encodeObject(members []member) ([]byte, error) {
	if len(members) == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, mem := range members {
		key, err := marshal(mem.key)
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, mem.value, "  ", "  "); err != nil {
			return nil, err
		}
		if i < len(members)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (m *Mutator) patchJSON(data []byte, note Note, fresh bool) ([]byte, error) {
	var members []member
	if !fresh {
		var err error
		if members, err = decodeObject(data); err != nil {
			return nil, err
		}
	}

	find := func(key string) int {
		for i, mem := range members {
			if mem.key == key {
				return i
			}
		}
		return -1
	}

	switch m.opts.Marker {
	case MarkerList:
		rec, err := marshal(m.record(note, fresh))
		if err != nil {
			return nil, err
		}
		idx := find(m.opts.ListKey)
		if idx < 0 {
			members = append(members, member{key: m.opts.ListKey, value: []byte("[" + string(rec) + "]")})
			break
		}
		var list []json.RawMessage
		if err := json.Unmarshal(members[idx].value, &list); err != nil {
			return nil, fmt.Errorf("%q is not a list: %w", m.opts.ListKey, err)
		}
		if list == nil {
			return nil, fmt.Errorf("%q is not a list", m.opts.ListKey)
		}
		list = append(list, rec)
		value, err := marshal(list)
		if err != nil {
			return nil, err
		}
		members[idx].value = value

	default:
		if find(m.opts.ScalarKey) < 0 {
			value, err := marshal(note.Timestamp.Format(SecondLayout))
			if err != nil {
				return nil, err
			}
			members = append(members, member{key: m.opts.ScalarKey, value: value})
		}
	}

	return encodeObject(members)
}

func (m *Mutator) patchYAML(data []byte, note Note, fresh bool) ([]byte, error) {
	var doc yaml.Node
	if !fresh {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errMalformed
		}
	}

	var root *yaml.Node
	switch {
	case doc.Kind == 0 || len(doc.Content) == 0:
		root = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	case doc.Content[0].Kind == yaml.MappingNode:
		root = doc.Content[0]
	default:
		return nil, fmt.Errorf("top-level YAML value is not a mapping")
	}

	find := func(key string) *yaml.Node {
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == key {
				return root.Content[i+1]
			}
		}
		return nil
	}
	keyNode := func(key string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	}

	switch m.opts.Marker {
	case MarkerList:
		var rec yaml.Node
		if err := rec.Encode(m.record(note, fresh)); err != nil {
			return nil, err
		}
		list := find(m.opts.ListKey)
		if list == nil {
			list = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			root.Content = append(root.Content, keyNode(m.opts.ListKey), list)
		}
		if list.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%q is not a list", m.opts.ListKey)
		}
		list.Content = append(list.Content, &rec)

	default:
		if find(m.opts.ScalarKey) == nil {
			value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: note.Timestamp.Format(SecondLayout)}
			root.Content = append(root.Content, keyNode(m.opts.ScalarKey), value)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
