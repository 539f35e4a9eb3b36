package main

import (
	"context"
	"fmt"
	"path"

	"github.com/newrelic/infra-integrations-sdk/log"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vapi/rest"
	"github.com/vmware/govmomi/vapi/tags"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

// resolveVirtualMachines turns the filter into a set of VM references,
// delegating each selection mode to the platform. The order of the result is
// the order the inventory returned it in; the report preserves it.
func resolveVirtualMachines(ctx context.Context, client *govmomi.Client, restClient *rest.Client, finder *find.Finder, dc *object.Datacenter, f *vmFilter) ([]types.ManagedObjectReference, error) {
	switch f.mode() {
	case byID:
		return vmRefsFromIDs(f.IDs), nil
	case byRelatedObject:
		return getVMsForRelatedObject(ctx, client, finder, f.RelatedType, f.RelatedName)
	case byVirtualSwitch:
		return getVMsForVirtualSwitch(ctx, client, finder, f.VirtualSwitch)
	case byDatastore:
		return getVMsForDatastore(ctx, client, finder, f.Datastore)
	default:
		return getVMsByName(ctx, client, restClient, finder, dc, f)
	}
}

func vmRefsFromIDs(ids []string) []types.ManagedObjectReference {
	refs := make([]types.ManagedObjectReference, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, types.ManagedObjectReference{Type: "VirtualMachine", Value: id})
	}
	return refs
}

// getVMsByName walks the datacenter VM folder (or the Location folder below
// it) with a container view and keeps the VMs whose name matches a pattern.
// The tag selector further restricts the set to VMs carrying at least one of
// the named tags.
func getVMsByName(ctx context.Context, client *govmomi.Client, restClient *rest.Client, finder *find.Finder, dc *object.Datacenter, f *vmFilter) ([]types.ManagedObjectReference, error) {
	root, err := reportRoot(ctx, finder, dc, f.Location)
	if err != nil {
		return nil, err
	}

	manager := view.NewManager(client.Client)
	recursive := !f.NoRecursion
	cv, err := manager.CreateContainerView(ctx, root, []string{"VirtualMachine"}, recursive)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cv.Destroy(ctx); err != nil {
			log.Error(err.Error())
		}
	}()

	var vms []mo.VirtualMachine
	err = cv.Retrieve(ctx, []string{"VirtualMachine"}, []string{"name"}, &vms)
	if err != nil {
		return nil, err
	}

	var refs []types.ManagedObjectReference
	for _, vm := range vms {
		if f.matchesName(vm.Name) {
			refs = append(refs, vm.Reference())
		}
	}

	if len(f.Tags) == 0 {
		return refs, nil
	}
	tagged, err := getObjectsForTags(ctx, restClient, f.Tags)
	if err != nil {
		return nil, err
	}
	var kept []types.ManagedObjectReference
	for _, ref := range refs {
		if tagged[ref] {
			kept = append(kept, ref)
		}
	}
	return kept, nil
}

// reportRoot resolves the traversal root: the datacenter VM folder, or the
// Location path below it.
func reportRoot(ctx context.Context, finder *find.Finder, dc *object.Datacenter, location string) (types.ManagedObjectReference, error) {
	folders, err := dc.Folders(ctx)
	if err != nil {
		return types.ManagedObjectReference{}, err
	}
	if location == "" {
		return folders.VmFolder.Reference(), nil
	}
	folder, err := finder.Folder(ctx, path.Join(dc.InventoryPath, "vm", location))
	if err != nil {
		return types.ManagedObjectReference{}, fmt.Errorf("failed to resolve location %q: %w", location, err)
	}
	return folder.Reference(), nil
}

// getObjectsForTags returns the union of objects attached to the named tags.
func getObjectsForTags(ctx context.Context, restClient *rest.Client, tagNames []string) (map[types.ManagedObjectReference]bool, error) {
	if restClient == nil {
		return nil, fmt.Errorf("tag filter requires a vAPI session, but the REST login failed")
	}
	manager := tags.NewManager(restClient)
	tagged := make(map[types.ManagedObjectReference]bool)
	for _, name := range tagNames {
		tag, err := manager.GetTag(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tag %q: %w", name, err)
		}
		attached, err := manager.ListAttachedObjects(ctx, tag.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects for tag %q: %w", name, err)
		}
		for _, obj := range attached {
			tagged[obj.Reference()] = true
		}
	}
	return tagged, nil
}

func getVMsForDatastore(ctx context.Context, client *govmomi.Client, finder *find.Finder, name string) ([]types.ManagedObjectReference, error) {
	ds, err := finder.Datastore(ctx, name)
	if err != nil {
		log.Error("Failed to retrieve datastore [%s]: %v", name, err)
		return nil, err
	}
	var dsMo mo.Datastore
	pc := property.DefaultCollector(client.Client)
	if err := pc.RetrieveOne(ctx, ds.Reference(), []string{"vm"}, &dsMo); err != nil {
		return nil, err
	}
	return dsMo.Vm, nil
}

func getVMsForVirtualSwitch(ctx context.Context, client *govmomi.Client, finder *find.Finder, name string) ([]types.ManagedObjectReference, error) {
	net, err := finder.Network(ctx, name)
	if err != nil {
		log.Error("Failed to retrieve network [%s]: %v", name, err)
		return nil, err
	}
	pc := property.DefaultCollector(client.Client)
	ref := net.Reference()
	switch ref.Type {
	case "DistributedVirtualPortgroup":
		var pg mo.DistributedVirtualPortgroup
		if err := pc.RetrieveOne(ctx, ref, []string{"vm"}, &pg); err != nil {
			return nil, err
		}
		return pg.Vm, nil
	case "Network":
		var n mo.Network
		if err := pc.RetrieveOne(ctx, ref, []string{"vm"}, &n); err != nil {
			return nil, err
		}
		return n.Vm, nil
	case "OpaqueNetwork":
		var n mo.OpaqueNetwork
		if err := pc.RetrieveOne(ctx, ref, []string{"vm"}, &n); err != nil {
			return nil, err
		}
		return n.Vm, nil
	default:
		return nil, fmt.Errorf("unsupported network type %q for virtual_switch %q", ref.Type, name)
	}
}

func getVMsForRelatedObject(ctx context.Context, client *govmomi.Client, finder *find.Finder, relatedType, name string) ([]types.ManagedObjectReference, error) {
	pc := property.DefaultCollector(client.Client)
	switch relatedType {
	case "ResourcePool":
		pool, err := finder.ResourcePool(ctx, name)
		if err != nil {
			log.Error("Failed to retrieve resource pool [%s]: %v", name, err)
			return nil, err
		}
		var poolMo mo.ResourcePool
		if err := pc.RetrieveOne(ctx, pool.Reference(), []string{"vm"}, &poolMo); err != nil {
			return nil, err
		}
		return poolMo.Vm, nil
	case "VirtualApp":
		vapp, err := finder.VirtualApp(ctx, name)
		if err != nil {
			log.Error("Failed to retrieve vApp [%s]: %v", name, err)
			return nil, err
		}
		var vappMo mo.VirtualApp
		if err := pc.RetrieveOne(ctx, vapp.Reference(), []string{"vm"}, &vappMo); err != nil {
			return nil, err
		}
		return vappMo.Vm, nil
	default:
		return nil, fmt.Errorf("unsupported related_object type %q", relatedType)
	}
}
