// SPDX-License-Identifier: AGPL-3.0-or-later
package rpc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/btaudio/btaudiod/internal/a2dpio"
	"github.com/btaudio/btaudiod/internal/audio"
	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/graph"
	"github.com/btaudio/btaudiod/internal/hci"
	"github.com/btaudio/btaudiod/internal/pubsub"
	"github.com/btaudio/btaudiod/internal/rpc"
	"github.com/btaudio/btaudiod/internal/rpcbus"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*rpc.Server, *graph.Graph, *graph.Transport) {
	t.Helper()

	runtimeDir := t.TempDir()
	cfg := &config.Config{
		RuntimeDir: runtimeDir,
		PubSub:     config.PubSubBackendMemory,
	}

	ps, err := pubsub.MakePubSub(context.Background(), cfg)
	require.NoError(t, err)
	bus := rpcbus.New(ps)

	g := graph.New()
	a := graph.NewAdapter(hci.AdapterInfo{ID: 0, Name: "hci0"}, func() {})
	g.AddAdapter(a)
	dev := a.Device([6]byte{0, 1, 2, 3, 4, 5}, func() {})

	tr := graph.NewTransport("/hci0/dev_00_01_02_03_04_05/a2dpsnk", graph.ProfileA2DPSink, graph.DeviceRef{AdapterID: a.ID, Address: dev.Address}, func() {})
	tr.PCM = graph.NewPCM(graph.DirectionSink, audio.FormatS16LE, 44100, 2)
	dev.AddTransport(tr)

	srv := &rpc.Server{
		Config:       cfg,
		Graph:        g,
		Bus:          bus,
		Codecs:       codec.New,
		A2DPRegistry: a2dpio.NewRegistry(),
	}
	return srv, g, tr
}

func TestGetPCMsListsSnapshot(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := rpc.NewRouter(srv)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/org/bluealsa/pcms", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		PCMs []map[string]any `json:"pcms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.PCMs, 1)
	require.Equal(t, "a2dpsnk", body.PCMs[0]["mode"])
}

func TestPCMOpenProvisionsFIFOAndControlSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, _, _ := newTestServer(t)
	router := rpc.NewRouter(srv)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/org/bluealsa/hci0/00_01_02_03_04_05/a2dpsnk/a2dpsnk/open", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		AudioPath   string `json:"audioPath"`
		ControlPath string `json:"controlPath"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	info, err := os.Stat(resp.AudioPath)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&os.ModeNamedPipe)
}

func TestSelectCodecRejectsUnknownName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, _, _ := newTestServer(t)
	router := rpc.NewRouter(srv)

	w := httptest.NewRecorder()
	body := `{"codec":"not-a-codec"}`
	req := httptest.NewRequest(http.MethodPost, "/org/bluealsa/hci0/00_01_02_03_04_05/a2dpsnk/a2dpsnk/select-codec", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestStatusReportsAdapterTree(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, _, _ := newTestServer(t)
	router := rpc.NewRouter(srv)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, true, body["ready"])
}
