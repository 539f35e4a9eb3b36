package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

// maxFolderDepth bounds the parent walk so a malformed inventory cannot
// loop forever.
const maxFolderDepth = 64

// folderPathResolver computes the blue-folder path of a VM: the slash-joined
// names of its ancestor folders up to, but excluding, the datacenter VM root.
// The canonical "vm" and "Datacenters" segments never appear in the result.
// Paths are memoized per folder since VMs in a report usually share folders.
type folderPathResolver struct {
	pc    *property.Collector
	cache map[types.ManagedObjectReference]string
}

func newFolderPathResolver(client *vim25.Client) *folderPathResolver {
	return &folderPathResolver{
		pc:    property.DefaultCollector(client),
		cache: make(map[types.ManagedObjectReference]string),
	}
}

// path resolves the folder path for a VM given its parent reference. A VM
// directly under the datacenter VM folder resolves to "".
func (r *folderPathResolver) path(ctx context.Context, parent *types.ManagedObjectReference) (string, error) {
	if parent == nil || parent.Type != "Folder" {
		return "", nil
	}
	if cached, ok := r.cache[*parent]; ok {
		return cached, nil
	}

	var segments []string
	ref := *parent
	for depth := 0; ref.Type == "Folder"; depth++ {
		if depth >= maxFolderDepth {
			return "", fmt.Errorf("folder ancestry of %s exceeds %d levels", parent.Value, maxFolderDepth)
		}
		var folder mo.Folder
		if err := r.pc.RetrieveOne(ctx, ref, []string{"name", "parent"}, &folder); err != nil {
			return "", err
		}
		if folder.Name != "vm" && folder.Name != "Datacenters" {
			segments = append(segments, folder.Name)
		}
		if folder.Parent == nil {
			break
		}
		ref = *folder.Parent
	}

	// segments were collected leaf-to-root
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	path := strings.Join(segments, "/")
	r.cache[*parent] = path
	return path, nil
}
