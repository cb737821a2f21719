// Package entitymap joins source and target records through declarative
// per-field path mappings.
//
// An EntityMap lists fields by normalized name together with the path that
// reads the field on each side. Normalize reads either side into a flat
// Record; BuildPayload writes a Record into the nested structure expected
// by the target system. Both are pure and safe to call concurrently on a
// shared EntityMap.
package entitymap

import (
	"fmt"
	"strings"
)

type Side string

const (
	SideSource Side = "source"
	SideTarget Side = "target"
)

func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideSource:
		return SideSource, nil
	case SideTarget:
		return SideTarget, nil
	default:
		return "", fmt.Errorf("invalid side %q (want source or target)", s)
	}
}

// FieldMapping describes one normalized field. An empty path means the field
// does not exist on that side.
type FieldMapping struct {
	NormName   string `yaml:"norm_name" json:"norm_name"`
	SourcePath string `yaml:"source_path,omitempty" json:"source_path,omitempty"`
	TargetPath string `yaml:"target_path,omitempty" json:"target_path,omitempty"`
}

// Path returns the read path for side.
func (f FieldMapping) Path(side Side) (string, bool) {
	var p string
	switch side {
	case SideSource:
		p = f.SourcePath
	case SideTarget:
		p = f.TargetPath
	}
	return p, p != ""
}

type EntityMap struct {
	SourceEntityName string         `yaml:"source_entity_name" json:"source_entity_name"`
	TargetEntityName string         `yaml:"target_entity_name" json:"target_entity_name"`
	Fields           []FieldMapping `yaml:"fields" json:"fields"`
}

// EntityName returns the entity (or table) name used on side.
func (m EntityMap) EntityName(side Side) string {
	if side == SideTarget {
		return m.TargetEntityName
	}
	return m.SourceEntityName
}

type EntityMaps []EntityMap

// Find returns the map whose entity name on side equals name.
func (ms EntityMaps) Find(name string, side Side) (EntityMap, bool) {
	if name == "" {
		return EntityMap{}, false
	}
	for _, m := range ms {
		if m.EntityName(side) == name {
			return m, true
		}
	}
	return EntityMap{}, false
}

// Names lists entity names on side in declaration order.
func (ms EntityMaps) Names(side Side) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.EntityName(side))
	}
	return out
}
