package main

import (
	"fmt"
	"path"
	"strings"
)

// selectionMode mirrors the mutually exclusive parameter groups of the
// integration: exactly one group is active per invocation.
type selectionMode int

const (
	byName selectionMode = iota // name patterns, location and tags combine
	byDatastore
	byVirtualSwitch
	byRelatedObject
	byID
)

type vmFilter struct {
	Names         []string
	Location      string
	Tags          []string
	Datastore     string
	VirtualSwitch string
	RelatedType   string
	RelatedName   string
	IDs           []string
	NoRecursion   bool
}

var relatedObjectTypes = map[string]bool{
	"ResourcePool": true,
	"VirtualApp":   true,
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// filterFromArgs builds and validates the VM filter. Invalid selector
// combinations and malformed name patterns fail here, before any remote
// query is issued.
func filterFromArgs(a argumentList) (*vmFilter, error) {
	f := &vmFilter{
		Names:         splitList(a.Name),
		Location:      strings.Trim(strings.TrimSpace(a.Location), "/"),
		Tags:          splitList(a.Tag),
		Datastore:     strings.TrimSpace(a.Datastore),
		VirtualSwitch: strings.TrimSpace(a.VirtualSwitch),
		IDs:           splitList(a.ID),
		NoRecursion:   a.NoRecursion,
	}

	if related := strings.TrimSpace(a.RelatedObject); related != "" {
		parts := strings.SplitN(related, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("related_object must be given as Type:name, got %q", related)
		}
		if !relatedObjectTypes[parts[0]] {
			return nil, fmt.Errorf("unsupported related_object type %q (supported: ResourcePool, VirtualApp)", parts[0])
		}
		f.RelatedType = parts[0]
		f.RelatedName = parts[1]
	}

	nameGroup := len(f.Names) > 0 || f.Location != "" || len(f.Tags) > 0 || f.NoRecursion
	groups := 0
	if nameGroup {
		groups++
	}
	if f.Datastore != "" {
		groups++
	}
	if f.VirtualSwitch != "" {
		groups++
	}
	if f.RelatedType != "" {
		groups++
	}
	if len(f.IDs) > 0 {
		groups++
	}
	if groups > 1 {
		return nil, fmt.Errorf("name/location/tag, datastore, virtual_switch, related_object and id selectors are mutually exclusive")
	}

	for _, pattern := range f.Names {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid name pattern %q: %v", pattern, err)
		}
	}

	return f, nil
}

func (f *vmFilter) mode() selectionMode {
	switch {
	case len(f.IDs) > 0:
		return byID
	case f.RelatedType != "":
		return byRelatedObject
	case f.VirtualSwitch != "":
		return byVirtualSwitch
	case f.Datastore != "":
		return byDatastore
	default:
		return byName
	}
}

// matchesName reports whether a VM name matches any of the configured
// patterns. Matching is case-insensitive; no patterns means match all.
func (f *vmFilter) matchesName(name string) bool {
	if len(f.Names) == 0 {
		return true
	}
	name = strings.ToLower(name)
	for _, pattern := range f.Names {
		if ok, _ := path.Match(strings.ToLower(pattern), name); ok {
			return true
		}
	}
	return false
}
