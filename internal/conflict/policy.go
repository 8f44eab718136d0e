package conflict

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Side names the authoritative side of a field.
type Side string

const (
	SideDB     Side = "DB"
	SideRemote Side = "REMOTE"
)

// DefaultField is the policy key applied to fields without an explicit rule.
const DefaultField = "*"

// FieldPolicy maps field names to their authoritative side.
type FieldPolicy map[string]Side

// DefaultFieldPolicy returns the built-in table: marketplace owns price and
// stock, the local store owns descriptions and everything else.
func DefaultFieldPolicy() FieldPolicy {
	return FieldPolicy{
		"price":         SideRemote,
		"stockQuantity": SideRemote,
		"description":   SideDB,
		DefaultField:    SideDB,
	}
}

// For returns the side that owns field.
func (p FieldPolicy) For(field string) Side {
	if side, ok := p[field]; ok {
		return side
	}
	if side, ok := p[DefaultField]; ok {
		return side
	}
	return SideDB
}

func (p FieldPolicy) clone() FieldPolicy {
	c := make(FieldPolicy, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

type policyFile struct {
	Default string            `yaml:"default"`
	Fields  map[string]string `yaml:"fields"`
}

// LoadFieldPolicy reads a YAML override of the default field policy. An empty
// path returns the default table.
//
//	default: DB
//	fields:
//	  price: REMOTE
//	  title: DB
func LoadFieldPolicy(path string) (FieldPolicy, error) {
	policy := DefaultFieldPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading field policy: %w", err)
	}
	return parseFieldPolicy(data, policy)
}

func parseFieldPolicy(data []byte, base FieldPolicy) (FieldPolicy, error) {
	var f policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing field policy: %w", err)
	}

	if f.Default != "" {
		side, err := parseSide(f.Default)
		if err != nil {
			return nil, fmt.Errorf("field policy default: %w", err)
		}
		base[DefaultField] = side
	}
	for field, raw := range f.Fields {
		side, err := parseSide(raw)
		if err != nil {
			return nil, fmt.Errorf("field policy %q: %w", field, err)
		}
		base[field] = side
	}
	return base, nil
}

func parseSide(s string) (Side, error) {
	switch Side(s) {
	case SideDB, "DB_WINS":
		return SideDB, nil
	case SideRemote, "REMOTE_WINS", "ALLEGRO_WINS":
		return SideRemote, nil
	default:
		return "", fmt.Errorf("unknown side %q (want DB or REMOTE)", s)
	}
}
