// SPDX-License-Identifier: AGPL-3.0-or-later
package rpc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/btaudio/btaudiod/internal/audio"
	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/btaudio/btaudiod/internal/rpcerr"
	"github.com/gin-gonic/gin"
	"golang.org/x/sys/unix"
)

// openResponse is PCM1.Open adapted off D-Bus fd-passing (spec §4.7: "Open
// → (fd, fd) pair over SCM_RIGHTS") onto filesystem paths a local HTTP
// client opens itself: a named FIFO for audio and a Unix domain socket for
// the control protocol (spec §6), both provisioned under
// config.RuntimeDir. This substitution is recorded in DESIGN.md.
type openResponse struct {
	AudioPath   string `json:"audioPath"`
	ControlPath string `json:"controlPath"`
}

func (s *Server) resolvePCM(c *gin.Context) (*graph.Transport, *graph.PCM, bool) {
	path := routeTransportPath(c)
	tr, ok := s.Graph.FindTransport(path)
	if !ok {
		notFoundTransport(c)
		return nil, nil, false
	}
	pcm, ok := tr.PCMByMode(c.Param("mode"))
	if !ok {
		writeError(c, rpcerr.New(rpcerr.InvalidArguments, "no %q pcm on transport", c.Param("mode")))
		return nil, nil, false
	}
	return tr, pcm, true
}

// handlePCMOpen provisions the FIFO + control socket pair and marks pcm
// open, mirroring BlueALSA's ba_transport_pcm_release/acquire pairing.
func (s *Server) handlePCMOpen(c *gin.Context) {
	tr, pcm, ok := s.resolvePCM(c)
	if !ok {
		return
	}
	if pcm.IsOpen() {
		writeError(c, rpcerr.New(rpcerr.NotConnected, "pcm already open"))
		return
	}

	dir := filepath.Join(s.Config.RuntimeDir, filepath.Base(tr.Path), c.Param("mode"))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		writeError(c, rpcerr.New(rpcerr.FatalIO, "create runtime dir: %v", err))
		return
	}

	audioPath := filepath.Join(dir, "audio")
	_ = os.Remove(audioPath)
	if err := unix.Mkfifo(audioPath, 0o660); err != nil {
		writeError(c, rpcerr.New(rpcerr.FatalIO, "create audio fifo: %v", err))
		return
	}

	ctrlPath := filepath.Join(dir, "control")
	_ = os.Remove(ctrlPath)
	ctrlLn, err := net.Listen("unix", ctrlPath)
	if err != nil {
		writeError(c, rpcerr.New(rpcerr.FatalIO, "create control socket: %v", err))
		return
	}
	go s.serveControlSocket(tr, pcm, ctrlLn)

	audioFD, err := unix.Open(audioPath, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		writeError(c, rpcerr.New(rpcerr.FatalIO, "open audio fifo: %v", err))
		return
	}
	pcm.Open(audioFD, -1)

	s.Bus.PublishPropertiesChanged(c.Request.Context(), pcm1Path(tr, c.Param("mode")), map[string]string{
		"Running": "true",
	})

	c.JSON(200, openResponse{AudioPath: audioPath, ControlPath: ctrlPath})
}

// handleGetCodecs lists the codecs this transport's profile can negotiate
// (spec §4.7 "GetCodecs").
func (s *Server) handleGetCodecs(c *gin.Context) {
	tr, _, ok := s.resolvePCM(c)
	if !ok {
		return
	}
	var names []config.CodecName
	if tr.Profile.IsSCO() {
		names = []config.CodecName{config.CodecCVSD, config.CodecMSBC}
	} else {
		names = []config.CodecName{config.CodecSBC, config.CodecAAC, config.CodecAptX, config.CodecLDAC, config.CodecMP3}
	}
	c.JSON(200, gin.H{"codecs": names})
}

type selectCodecRequest struct {
	Codec      config.CodecName `json:"codec"`
	SampleRate int              `json:"sampleRate"`
	Channels   int              `json:"channels"`
	Bitpool    int              `json:"bitpool"`
}

// handleSelectCodec reselects the Transport's active codec (spec §4.7,
// Testable E4: "selecting a different codec on an open PCM ends with
// exactly one PropertiesChanged signal").
func (s *Server) handleSelectCodec(c *gin.Context) {
	tr, _, ok := s.resolvePCM(c)
	if !ok {
		return
	}
	var req selectCodecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, rpcerr.New(rpcerr.InvalidArguments, "%v", err))
		return
	}
	factory := s.Codecs
	if factory == nil {
		factory = codec.New
	}
	params := codec.Params{
		SampleRate: req.SampleRate,
		Channels:   req.Channels,
		Bitpool:    req.Bitpool,
	}
	adapter, err := factory(req.Codec, params)
	if err != nil {
		writeError(c, rpcerr.New(rpcerr.NotSupported, "%v", err))
		return
	}
	if tr.SelectCodec(req.Codec, params, adapter) {
		s.Bus.PublishPropertiesChanged(c.Request.Context(), pcm1Path(tr, c.Param("mode")), map[string]string{
			"Codec": string(req.Codec),
		})
	}
	c.JSON(200, gin.H{"codec": req.Codec})
}

type pcmProperties struct {
	Format     uint16 `json:"format"`
	Channels   byte   `json:"channels"`
	Sampling   uint32 `json:"sampling"`
	Volume     uint16 `json:"volume"`
	Muted      bool   `json:"muted"`
	SoftVolume bool   `json:"softVolume"`
	Running    bool   `json:"running"`
}

func (s *Server) handleGetPCMProperties(c *gin.Context) {
	_, pcm, ok := s.resolvePCM(c)
	if !ok {
		return
	}
	c.JSON(200, pcmProperties{
		Format:     uint16(pcm.Format),
		Channels:   byte(pcm.Channels),
		Sampling:   uint32(pcm.Sampling),
		Volume:     uint16(pcm.Volume),
		Muted:      pcm.Volume.Muted(),
		SoftVolume: pcm.SoftVolume,
		Running:    pcm.IsOpen(),
	})
}

type setPCMPropertiesRequest struct {
	Volume     *uint16 `json:"volume,omitempty"`
	Muted      *bool   `json:"muted,omitempty"`
	SoftVolume *bool   `json:"softVolume,omitempty"`
}

// handleSetPCMProperties applies Volume/Muted/SoftVolume writes. Volume is
// the full packed two-channel word (spec §6: "upper byte = channel 1, lower
// byte = channel 2; each byte's top bit is mute, remaining 7 bits are the
// level"), validated against the A2DP (0-127) or SCO (0-15) range for this
// transport's profile. Muted, when set, mutes/unmutes both channels at
// once, matching the mono AT+VGS/AT+VGM and RPC "Muted" summary property.
func (s *Server) handleSetPCMProperties(c *gin.Context) {
	tr, pcm, ok := s.resolvePCM(c)
	if !ok {
		return
	}
	var req setPCMPropertiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, rpcerr.New(rpcerr.InvalidArguments, "%v", err))
		return
	}

	word := pcm.Volume
	if req.Volume != nil {
		word = audio.VolumeWord(*req.Volume)
		max := audio.VolumeMaxA2DP
		if tr.Profile.IsSCO() {
			max = audio.VolumeMaxSCO
		}
		if word.Level1() > max || word.Level2() > max {
			writeError(c, rpcerr.New(rpcerr.InvalidArguments, "volume out of range"))
			return
		}
	}
	if req.Muted != nil {
		word = audio.NewVolumeWord(word.Level1(), *req.Muted, word.Level2(), *req.Muted)
	}
	changed := pcm.SetVolume(word)
	if req.SoftVolume != nil {
		pcm.SoftVolume = *req.SoftVolume
		changed = true
	}
	if changed {
		s.Bus.PublishPropertiesChanged(c.Request.Context(), pcm1Path(tr, c.Param("mode")), map[string]string{
			"Volume": strconv.FormatUint(uint64(word), 10),
			"Muted":  strconv.FormatBool(word.Muted()),
		})
	}
	c.Status(204)
}

func pcm1Path(tr *graph.Transport, mode string) string {
	return fmt.Sprintf("%s/%s", tr.Path, mode)
}
