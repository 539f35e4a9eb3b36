package main

import (
	"context"
	"fmt"

	"github.com/newrelic/infra-integrations-sdk/data/metric"
	"github.com/newrelic/infra-integrations-sdk/integration"
	"github.com/newrelic/infra-integrations-sdk/log"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vapi/rest"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

const reportEventType = "VSphereCdDriveSample"

// cdDriveRecord is one row of the report. Empty strings mean "not present",
// never "unknown": a VM without a CD-ROM still gets a record.
type cdDriveRecord struct {
	Name           string
	Datastore      string
	IsoPath        string
	HostDevice     string
	RemoteDevice   string
	BlueFolderPath string
	Tags           string
}

type reportCollector struct {
	client     *govmomi.Client
	restClient *rest.Client
	entity     *integration.Entity
	finder     *find.Finder
	dc         *object.Datacenter
	filter     *vmFilter
	columns    map[string]bool
	folders    *folderPathResolver
	tags       *tagCollector

	records  []cdDriveRecord
	warnings []string
}

func newReportCollector(client *govmomi.Client, restClient *rest.Client, entity *integration.Entity, finder *find.Finder, dc *object.Datacenter, filter *vmFilter, columns []string) *reportCollector {
	columnSet := make(map[string]bool, len(columns))
	for _, column := range columns {
		columnSet[column] = true
	}
	return &reportCollector{
		client:     client,
		restClient: restClient,
		entity:     entity,
		finder:     finder,
		dc:         dc,
		filter:     filter,
		columns:    columnSet,
		folders:    newFolderPathResolver(client.Client),
		tags:       newTagCollector(restClient),
	}
}

// warn records a recoverable per-item failure. The report keeps going; the
// affected fields stay empty.
func (c *reportCollector) warn(format string, fmtArgs ...interface{}) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, fmtArgs...))
	log.Warn(format, fmtArgs...)
}

// collect resolves the VM set and assembles one record per VM, in listing
// order. Only the resolution itself is fatal: without a VM set there is no
// report. Every per-VM enrichment failure is downgraded to a warning.
func (c *reportCollector) collect(ctx context.Context) error {
	refs, err := resolveVirtualMachines(ctx, c.client, c.restClient, c.finder, c.dc, c.filter)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		log.Debug("No virtual machines matched the filter in datacenter [%s]", c.dc.Name())
		return nil
	}

	// name, parent and datastore placement come from one bulk retrieve;
	// a failure here means the listed set is unusable, same as a failed
	// listing.
	pc := property.DefaultCollector(c.client.Client)
	var vms []mo.VirtualMachine
	if err := pc.Retrieve(ctx, refs, []string{"name", "parent", "datastore"}, &vms); err != nil {
		return fmt.Errorf("failed to retrieve virtual machine properties: %w", err)
	}
	vmByRef := make(map[types.ManagedObjectReference]mo.VirtualMachine, len(vms))
	for _, vm := range vms {
		vmByRef[vm.Reference()] = vm
	}

	datastoreNames, err := c.datastoreNames(ctx, pc, vms)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		vm, ok := vmByRef[ref]
		if !ok {
			c.warn("Virtual machine [%s] disappeared between listing and retrieval", ref.Value)
			continue
		}
		record, cdrom := c.enrich(ctx, ref, vm, datastoreNames)
		c.records = append(c.records, record)
		c.emitRecord(record, cdrom)
	}
	return nil
}

// enrich assembles the record for one VM. Each lookup fails independently.
func (c *reportCollector) enrich(ctx context.Context, ref types.ManagedObjectReference, vm mo.VirtualMachine, datastoreNames map[types.ManagedObjectReference]string) (cdDriveRecord, *types.VirtualCdrom) {
	record := cdDriveRecord{Name: vm.Name}

	var cdrom *types.VirtualCdrom
	var deviceVM mo.VirtualMachine
	pc := property.DefaultCollector(c.client.Client)
	if err := pc.RetrieveOne(ctx, ref, []string{"config.hardware.device"}, &deviceVM); err != nil {
		c.warn("Failed to query CD drive for [%s]: %v", vm.Name, err)
	} else if deviceVM.Config != nil {
		var state cdDriveState
		state, cdrom = cdDriveFromDevices(object.VirtualDeviceList(deviceVM.Config.Hardware.Device))
		record.IsoPath = state.IsoPath
		record.HostDevice = state.HostDevice
		record.RemoteDevice = state.RemoteDevice
	}

	if len(vm.Datastore) > 0 {
		record.Datastore = datastoreNames[vm.Datastore[0]]
	}

	folderPath, err := c.folders.path(ctx, vm.Parent)
	if err != nil {
		c.warn("Failed to resolve folder path for [%s]: %v", vm.Name, err)
	} else {
		record.BlueFolderPath = folderPath
	}

	if c.tags != nil {
		tagNames, err := c.tags.attachedTagNames(ctx, ref)
		if err != nil {
			c.warn("Failed to query tag assignments for [%s]: %v", vm.Name, err)
		} else {
			record.Tags = tagNames
		}
	}

	return record, cdrom
}

// datastoreNames resolves the name of every datastore referenced by the VM
// set with a single retrieve.
func (c *reportCollector) datastoreNames(ctx context.Context, pc *property.Collector, vms []mo.VirtualMachine) (map[types.ManagedObjectReference]string, error) {
	seen := make(map[types.ManagedObjectReference]bool)
	var refs []types.ManagedObjectReference
	for _, vm := range vms {
		for _, ref := range vm.Datastore {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	names := make(map[types.ManagedObjectReference]string, len(refs))
	if len(refs) == 0 {
		return names, nil
	}
	var dss []mo.Datastore
	if err := pc.Retrieve(ctx, refs, []string{"name"}, &dss); err != nil {
		return nil, fmt.Errorf("failed to retrieve datastore names: %w", err)
	}
	for _, ds := range dss {
		names[ds.Reference()] = ds.Name
	}
	return names, nil
}

// emitRecord publishes one record as a metric set, restricted to the
// configured columns.
func (c *reportCollector) emitRecord(record cdDriveRecord, cdrom *types.VirtualCdrom) {
	ms := c.entity.NewMetricSet(reportEventType)
	attributes := []struct {
		column string
		value  string
	}{
		{"name", record.Name},
		{"datastore", record.Datastore},
		{"isoPath", record.IsoPath},
		{"hostDevice", record.HostDevice},
		{"remoteDevice", record.RemoteDevice},
		{"blueFolderPath", record.BlueFolderPath},
		{"tags", record.Tags},
	}
	for _, attribute := range attributes {
		if !c.columns[attribute.column] {
			continue
		}
		if err := ms.SetMetric(attribute.column, attribute.value, metric.ATTRIBUTE); err != nil {
			log.Error(err.Error())
		}
	}

	if args.DeviceDetail && cdrom != nil {
		emitDeviceDetail(ms, cdrom)
	}
}
