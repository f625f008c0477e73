// Package oids names object identifiers for diagnostics. Entries use the
// dumpasn1.cfg format: an "OID =" line opens an entry, followed by
// "Description =", an optional "Comment =" and an optional bare "Warning".
package oids

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// OIDInfo describes one object identifier
type OIDInfo struct {
	// OID is in dotted form
	OID         string
	Description string
	Comment     string
	// Warning marks deprecated or weak algorithms
	Warning bool
}

// Registry maps dotted OIDs to their descriptions
type Registry struct {
	entries map[string]*OIDInfo
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*OIDInfo)}
}

// ParseFile creates a registry from a dumpasn1.cfg style reader
func ParseFile(r io.Reader) (*Registry, error) {
	reg := NewRegistry()
	if err := reg.Parse(r); err != nil {
		return nil, err
	}
	return reg, nil
}

// normalize turns "1 2 840" and "1.2.840" into "1.2.840"
func normalize(oid string) string {
	return strings.Join(strings.FieldsFunc(oid, func(r rune) bool {
		return r == ' ' || r == '.' || r == '\t'
	}), ".")
}

// Parse adds the entries read from r. OIDs may be written with spaces, as
// dumpasn1 does, or with dots.
func (r *Registry) Parse(in io.Reader) error {
	var (
		current *OIDInfo
		line    int
	)
	flush := func() error {
		if current == nil {
			return nil
		}
		if current.Description == "" {
			return fmt.Errorf("line %d: OID %s has no description", line, current.OID)
		}
		r.entries[current.OID] = current
		current = nil
		return nil
	}

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		if text == "Warning" {
			if current == nil {
				return fmt.Errorf("line %d: Warning outside an entry", line)
			}
			current.Warning = true
			continue
		}

		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return fmt.Errorf("line %d: expected 'attribute = value'", line)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "OID" {
			if err := flush(); err != nil {
				return err
			}
			if current = (&OIDInfo{OID: normalize(value)}); current.OID == "" {
				return fmt.Errorf("line %d: empty OID", line)
			}
			continue
		}
		if current == nil {
			return fmt.Errorf("line %d: %s outside an entry", line, key)
		}
		switch key {
		case "Description":
			current.Description = value
		case "Comment":
			current.Comment = value
		default:
			return fmt.Errorf("line %d: unknown attribute %q", line, key)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return flush()
}

// Lookup finds oid in dotted or spaced form
func (r *Registry) Lookup(oid string) (*OIDInfo, bool) {
	info, ok := r.entries[normalize(oid)]
	return info, ok
}

// LookupDescription returns the description of oid or ""
func (r *Registry) LookupDescription(oid string) string {
	if info, ok := r.Lookup(oid); ok {
		return info.Description
	}
	return ""
}

// Name returns the description of oid, or the dotted OID when unknown
func (r *Registry) Name(oid string) string {
	if desc := r.LookupDescription(oid); desc != "" {
		return desc
	}
	return normalize(oid)
}

// Weak reports whether oid is flagged with a warning
func (r *Registry) Weak(oid string) bool {
	info, ok := r.Lookup(oid)
	return ok && info.Warning
}

func (r *Registry) Count() int {
	return len(r.entries)
}

// Entries lists the registry sorted by OID
func (r *Registry) Entries() []OIDInfo {
	out := make([]OIDInfo, 0, len(r.entries))
	for _, info := range r.entries {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OID < out[j].OID })
	return out
}
