// SPDX-License-Identifier: AGPL-3.0-or-later
package rpc

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// deviceStatus/adapterStatus supplement spec §4.7's pure Manager1/PCM1
// surface with an at-a-glance view, grounded on DMRHub's /api/status-style
// single-endpoint health summary.
type deviceStatus struct {
	Address   string   `json:"address"`
	Name      string   `json:"name"`
	Battery   byte     `json:"battery,omitempty"`
	Transport []string `json:"transports"`
}

type adapterStatus struct {
	HCI     string         `json:"hci"`
	Devices []deviceStatus `json:"devices"`
}

func (s *Server) handleStatus(c *gin.Context) {
	var adapters []adapterStatus
	for _, a := range s.Graph.Adapters() {
		as := adapterStatus{HCI: a.HCIName()}
		for _, d := range a.Devices() {
			addr := d.Address
			ds := deviceStatus{
				Address: fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", addr[0], addr[1], addr[2], addr[3], addr[4], addr[5]),
				Name:    d.GetName(),
				Battery: d.GetBattery(),
			}
			for _, t := range d.Transports() {
				ds.Transport = append(ds.Transport, t.Profile.String()+":"+t.GetSCOState().String())
			}
			as.Devices = append(as.Devices, ds)
		}
		adapters = append(adapters, as)
	}
	c.JSON(200, gin.H{"ready": true, "adapters": adapters})
}
