package main

import (
	"encoding/json"

	"github.com/jeremywohl/flatten"
	"github.com/newrelic/infra-integrations-sdk/data/metric"
	"github.com/newrelic/infra-integrations-sdk/log"
	"github.com/vmware/govmomi/vim25/types"
)

// emitDeviceDetail publishes the raw CD-ROM device on the same sample,
// flattened to dotted keys under "device.". Useful when the fixed report
// columns are not enough to diagnose a backing.
func emitDeviceDetail(ms *metric.Set, cdrom *types.VirtualCdrom) {
	deviceJSON, err := json.Marshal(cdrom)
	if err != nil {
		log.Error("Unable to serialize CD-ROM device: %v", err)
		return
	}
	flatJSON, err := flatten.FlattenString(string(deviceJSON), "device.", flatten.DotStyle)
	if err != nil {
		log.Error("Unable to flatten CD-ROM device: %v", err)
		return
	}
	var flat map[string]interface{}
	if err := json.Unmarshal([]byte(flatJSON), &flat); err != nil {
		log.Error("Unable to decode flattened CD-ROM device: %v", err)
		return
	}
	for key, value := range flat {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if err := ms.SetMetric(key, v, metric.ATTRIBUTE); err != nil {
				log.Error(err.Error())
			}
		case bool:
			var gauge int
			if v {
				gauge = 1
			}
			if err := ms.SetMetric(key, gauge, metric.GAUGE); err != nil {
				log.Error(err.Error())
			}
		default:
			if err := ms.SetMetric(key, value, metric.GAUGE); err != nil {
				log.Error(err.Error())
			}
		}
	}
}
