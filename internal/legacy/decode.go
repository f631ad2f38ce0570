package legacy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"caseport/internal/domain"
	"caseport/internal/errs"
)

type decoder func([]byte) (Config, error)

// schemas maps a document's version field to its decoder. A missing version
// is the original flat layout.
var schemas = map[int]decoder{
	0: decodeV1,
	1: decodeV1,
	2: decodeV2,
}

// Versions lists the supported schema versions.
func Versions() []int { return []int{1, 2} }

// Decode selects the schema for data by its version field and decodes it.
func Decode(data []byte) (Config, error) {
	var probe struct {
		Version int `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, errs.Wrap(errs.InvalidDocument, err, "invalid legacy document")
	}
	dec, ok := schemas[probe.Version]
	if !ok {
		return nil, &errs.Error{Kind: errs.UnsupportedSchema, Field: "version", Msg: "unsupported schema version " + strconv.Itoa(probe.Version)}
	}
	return dec(data)
}

// Convert decodes data and builds its canonical configuration.
func Convert(data []byte) (domain.CasesConfig, error) {
	c, err := Decode(data)
	if err != nil {
		return domain.CasesConfig{}, err
	}
	return Build(c)
}

// decodeStrict rejects unknown keys so a misspelled field never falls back
// to a default.
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &errs.Error{Kind: errs.InvalidDocument, Msg: "empty legacy document"}
		}
		var e *errs.Error
		if errors.As(err, &e) {
			if e.Field == "" && e.Line > 0 {
				if field := fieldAtLine(data, e.Line); field != "" {
					return errs.WithField(err, field)
				}
			}
			return err
		}
		return errs.Wrap(errs.InvalidDocument, err, "invalid legacy document")
	}
	return nil
}

// fieldAtLine names the mapping key whose scalar value sits on line. Field
// decoders only see their own node, so the key is recovered from the tree.
func fieldAtLine(data []byte, line int) string {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return ""
	}
	return keyAt(doc.Content[0], line, "")
}

func keyAt(n *yaml.Node, line int, prefix string) string {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			name := key.Value
			if prefix != "" {
				name = prefix + "." + name
			}
			if val.Kind == yaml.ScalarNode && val.Line == line {
				return name
			}
			if f := keyAt(val, line, name); f != "" {
				return f
			}
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			if f := keyAt(c, line, fmt.Sprintf("%s[%d]", prefix, i)); f != "" {
				return f
			}
		}
	}
	return ""
}
