package main

import (
	"context"
	"testing"

	"github.com/newrelic/infra-integrations-sdk/integration"
	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/simulator"
	"github.com/vmware/govmomi/vapi/rest"
	_ "github.com/vmware/govmomi/vapi/simulator"
	"github.com/vmware/govmomi/vapi/tags"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/types"
)

// reportTestContext bundles everything the report code needs against vcsim.
type reportTestContext struct {
	client     *govmomi.Client
	restClient *rest.Client
	finder     *find.Finder
	dc         *object.Datacenter
}

// simTest runs f against a simulated vCenter. A nil model uses the default
// VPX inventory.
func simTest(t *testing.T, model *simulator.Model, f func(ctx context.Context, tc *reportTestContext)) {
	t.Helper()
	run := func(ctx context.Context, vc *vim25.Client) {
		client := &govmomi.Client{Client: vc, SessionManager: session.NewManager(vc)}

		restClient := rest.NewClient(vc)
		require.NoError(t, restClient.Login(ctx, simulator.DefaultLogin))

		finder := find.NewFinder(vc, true)
		dc, err := finder.DefaultDatacenter(ctx)
		require.NoError(t, err)
		finder.SetDatacenter(dc)

		f(ctx, &reportTestContext{
			client:     client,
			restClient: restClient,
			finder:     finder,
			dc:         dc,
		})
	}
	if model == nil {
		simulator.Test(run)
		return
	}
	simulator.Test(run, model)
}

// runReport builds a collector against a fresh test integration entity and
// runs the collection.
func runReport(ctx context.Context, t *testing.T, tc *reportTestContext, filter *vmFilter, columns []string) *reportCollector {
	t.Helper()
	i, err := integration.New("test", "0.0.0")
	require.NoError(t, err)
	entity, err := i.Entity(tc.dc.Name(), "datacenter")
	require.NoError(t, err)

	c := newReportCollector(tc.client, tc.restClient, entity, tc.finder, tc.dc, filter, columns)
	require.NoError(t, c.collect(ctx))
	return c
}

func mustFilter(t *testing.T, a argumentList) *vmFilter {
	t.Helper()
	filter, err := filterFromArgs(a)
	require.NoError(t, err)
	return filter
}

// ensurePoweredOff powers the VM off when needed; device changes require it.
func ensurePoweredOff(ctx context.Context, t *testing.T, vm *object.VirtualMachine) {
	t.Helper()
	powerState, err := vm.PowerState(ctx)
	require.NoError(t, err)
	if powerState == types.VirtualMachinePowerStatePoweredOn {
		task, err := vm.PowerOff(ctx)
		require.NoError(t, err)
		require.NoError(t, task.Wait(ctx))
	}
}

// attachIso mounts an ISO into the VM's CD-ROM, creating the device when the
// VM has none.
func attachIso(ctx context.Context, t *testing.T, vm *object.VirtualMachine, iso string) {
	t.Helper()
	ensurePoweredOff(ctx, t, vm)

	devices, err := vm.Device(ctx)
	require.NoError(t, err)

	if cdroms := devices.SelectByType((*types.VirtualCdrom)(nil)); len(cdroms) > 0 {
		cdrom := cdroms[0].(*types.VirtualCdrom)
		devices.InsertIso(cdrom, iso)
		require.NoError(t, vm.EditDevice(ctx, cdrom))
		return
	}

	ide, err := devices.FindIDEController("")
	require.NoError(t, err)
	cdrom, err := devices.CreateCdrom(ide)
	require.NoError(t, err)
	devices.InsertIso(cdrom, iso)
	require.NoError(t, vm.AddDevice(ctx, cdrom))
}

// removeCdrom strips every CD-ROM device from the VM; the simulator's
// default VMs come with an ATAPI-backed drive.
func removeCdrom(ctx context.Context, t *testing.T, vm *object.VirtualMachine) {
	t.Helper()
	ensurePoweredOff(ctx, t, vm)

	devices, err := vm.Device(ctx)
	require.NoError(t, err)
	for _, device := range devices.SelectByType((*types.VirtualCdrom)(nil)) {
		require.NoError(t, vm.RemoveDevice(ctx, false, device))
	}
}

// createFolderPath creates a nested folder chain under the datacenter VM
// folder and returns the leaf.
func createFolderPath(ctx context.Context, t *testing.T, dc *object.Datacenter, names ...string) *object.Folder {
	t.Helper()
	folders, err := dc.Folders(ctx)
	require.NoError(t, err)
	current := folders.VmFolder
	for _, name := range names {
		next, err := current.CreateFolder(ctx, name)
		require.NoError(t, err)
		current = next
	}
	return current
}

func moveIntoFolder(ctx context.Context, t *testing.T, folder *object.Folder, ref types.ManagedObjectReference) {
	t.Helper()
	task, err := folder.MoveInto(ctx, []types.ManagedObjectReference{ref})
	require.NoError(t, err)
	require.NoError(t, task.Wait(ctx))
}

// attachTags creates one category holding the given tags and attaches them
// all to the reference, in order.
func attachTags(ctx context.Context, t *testing.T, restClient *rest.Client, ref types.ManagedObjectReference, tagNames ...string) {
	t.Helper()
	manager := tags.NewManager(restClient)
	categoryID, err := manager.CreateCategory(ctx, &tags.Category{
		Name:            "cdreport-test",
		Cardinality:     "MULTIPLE",
		AssociableTypes: []string{"VirtualMachine"},
	})
	require.NoError(t, err)
	for _, name := range tagNames {
		tagID, err := manager.CreateTag(ctx, &tags.Tag{Name: name, CategoryID: categoryID})
		require.NoError(t, err)
		require.NoError(t, manager.AttachTag(ctx, tagID, ref))
	}
}
