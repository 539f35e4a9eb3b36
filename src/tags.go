package main

import (
	"context"
	"strings"

	"github.com/vmware/govmomi/vapi/rest"
	"github.com/vmware/govmomi/vapi/tags"
	"github.com/vmware/govmomi/vim25/types"
)

// tagCollector looks up tag assignments through the vAPI tag manager.
type tagCollector struct {
	manager *tags.Manager
}

// newTagCollector returns nil when no REST session is available; callers
// treat a nil collector as "tags column empty".
func newTagCollector(restClient *rest.Client) *tagCollector {
	if restClient == nil {
		return nil
	}
	return &tagCollector{manager: tags.NewManager(restClient)}
}

// attachedTagNames returns the comma-joined names of the tags attached to
// the entity, in the order the assignment query returned them.
func (t *tagCollector) attachedTagNames(ctx context.Context, ref types.ManagedObjectReference) (string, error) {
	attached, err := t.manager.GetAttachedTags(ctx, ref)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(attached))
	for _, tag := range attached {
		names = append(names, tag.Name)
	}
	return strings.Join(names, ","), nil
}
