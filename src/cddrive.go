package main

import (
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/types"
)

// cdDriveState is the optical-media configuration of a VM. All fields are
// optional; a VM without a CD-ROM device yields the zero value.
type cdDriveState struct {
	IsoPath      string
	HostDevice   string
	RemoteDevice string
}

// cdDriveFromDevices inspects a VM device list and returns the state of the
// first CD-ROM device, along with the device itself for detail publishing.
// VMs without a CD-ROM return the zero state and a nil device.
func cdDriveFromDevices(devices object.VirtualDeviceList) (cdDriveState, *types.VirtualCdrom) {
	var state cdDriveState
	cdroms := devices.SelectByType((*types.VirtualCdrom)(nil))
	if len(cdroms) == 0 {
		return state, nil
	}
	cdrom := cdroms[0].(*types.VirtualCdrom)

	switch backing := cdrom.Backing.(type) {
	case *types.VirtualCdromIsoBackingInfo:
		state.IsoPath = backing.FileName
	case *types.VirtualCdromAtapiBackingInfo:
		state.HostDevice = backing.DeviceName
	case *types.VirtualCdromPassthroughBackingInfo:
		state.HostDevice = backing.DeviceName
	case *types.VirtualCdromRemoteAtapiBackingInfo:
		state.RemoteDevice = backing.DeviceName
	case *types.VirtualCdromRemotePassthroughBackingInfo:
		state.RemoteDevice = backing.DeviceName
	}
	return state, cdrom
}
