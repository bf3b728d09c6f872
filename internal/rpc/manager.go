// SPDX-License-Identifier: AGPL-3.0-or-later
package rpc

import "github.com/gin-gonic/gin"

// pcmView is the wire shape of one GetPCMs entry (spec §4.7).
type pcmView struct {
	Path       string `json:"path"`
	Device     string `json:"device"`
	Transport  string `json:"transport"`
	Mode       string `json:"mode"`
	Format     uint16 `json:"format"`
	Channels   byte   `json:"channels"`
	Sampling   uint32 `json:"sampling"`
	Codec      uint16 `json:"codec"`
	Volume     uint16 `json:"volume"`
	SoftVolume bool   `json:"softVolume"`
}

// handleGetPCMs implements Manager1.GetPCMs (spec §4.7, Testable Property
// 3: no two entries share a (Device, Transport, Mode) triple — guaranteed
// here by graph.Graph.PCMs walking each Transport's PCM/Spk/Mic exactly
// once).
func (s *Server) handleGetPCMs(c *gin.Context) {
	snaps := s.Graph.PCMs()
	out := make([]pcmView, 0, len(snaps))
	for _, sn := range snaps {
		out = append(out, pcmView{
			Path:       sn.Path,
			Device:     sn.Device,
			Transport:  sn.Transport,
			Mode:       sn.Mode,
			Format:     sn.Format,
			Channels:   sn.Channels,
			Sampling:   sn.Sampling,
			Codec:      sn.CodecID,
			Volume:     sn.Volume,
			SoftVolume: sn.SoftVolume,
		})
	}
	c.JSON(200, gin.H{"pcms": out})
}
