// Package singbox rewrites sing-box client configurations: it swaps in
// the servers of a subscription bundle and derives the trimmed "Air"
// variants from the full "Pro" configuration.
package singbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

var ErrNoOutbounds = errors.New("configuration has no outbounds")

// Group outbound types; everything else is treated as a server.
const (
	TypeSelector = "selector"
	TypeURLTest  = "urltest"
)

// Document is a sing-box configuration. Fields the updater does not
// touch are carried through untouched.
type Document map[string]any

// Outbound is one entry of the "outbounds" array.
type Outbound map[string]any

func Decode(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode sing-box config: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode sing-box config: not an object")
	}
	return doc, nil
}

// Load reads a configuration that must contain an outbounds array.
func Load(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, ok := doc["outbounds"].([]any); !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNoOutbounds)
	}
	return doc, nil
}

// Encode writes doc as 4-space indented JSON without escaping HTML or
// non-ASCII characters.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(doc)
}

func Save(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Outbounds returns the object entries of the outbounds array. The
// returned outbounds share memory with doc.
func (d Document) Outbounds() []Outbound {
	raw, _ := d["outbounds"].([]any)
	out := make([]Outbound, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Outbound(m))
		}
	}
	return out
}

func (d Document) SetOutbounds(obs []Outbound) {
	raw := make([]any, 0, len(obs))
	for _, o := range obs {
		raw = append(raw, map[string]any(o))
	}
	d["outbounds"] = raw
}

// Find returns the outbound with the given tag.
func (d Document) Find(tag string) (Outbound, bool) {
	for _, o := range d.Outbounds() {
		if o.Tag() == tag {
			return o, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

func (o Outbound) Tag() string {
	s, _ := o["tag"].(string)
	return s
}

func (o Outbound) Type() string {
	s, _ := o["type"].(string)
	return s
}

// IsGroup reports whether o selects among other outbounds.
func (o Outbound) IsGroup() bool {
	t := o.Type()
	return t == TypeSelector || t == TypeURLTest
}

// Members returns the tags a group outbound refers to.
func (o Outbound) Members() []string {
	raw, _ := o["outbounds"].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (o Outbound) SetMembers(tags []string) {
	raw := make([]any, 0, len(tags))
	for _, t := range tags {
		raw = append(raw, t)
	}
	o["outbounds"] = raw
}

var versionPattern = regexp.MustCompile(`V(\d+)_(\d+)`)

// VersionFromName extracts "5_9" from names like Singbox_Pro_V5_9.json.
func VersionFromName(name string) string {
	m := versionPattern.FindStringSubmatch(name)
	if m == nil {
		return "5_9"
	}
	return m[1] + "_" + m[2]
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, item := range x {
			m[k] = cloneValue(item)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, item := range x {
			s[i] = cloneValue(item)
		}
		return s
	default:
		return v
	}
}
