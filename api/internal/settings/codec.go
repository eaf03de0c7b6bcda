package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is one settings file: a free-form tree of maps, lists and scalars.
type Document = map[string]any

type Codec interface {
	Ext() string
	Decode(b []byte) (Document, error)
	Encode(doc Document) ([]byte, error)
}

type YAMLCodec struct{}

func (YAMLCodec) Ext() string { return ".yaml" }

func (YAMLCodec) Decode(b []byte) (Document, error) {
	doc := Document{}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return doc, nil
}

func (YAMLCodec) Encode(doc Document) ([]byte, error) { return yaml.Marshal(doc) }

type JSONCodec struct{}

func (JSONCodec) Ext() string { return ".json" }

func (JSONCodec) Decode(b []byte) (Document, error) {
	doc := Document{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return doc, nil
}

func (JSONCodec) Encode(doc Document) ([]byte, error) { return json.MarshalIndent(doc, "", "  ") }

// CodecFor maps a format name ("yaml", "yml", "json") to its codec.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml", "yml":
		return YAMLCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown settings format %q", format)
	}
}
