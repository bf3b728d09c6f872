// SPDX-License-Identifier: AGPL-3.0-or-later
package rpc

import (
	"errors"

	"github.com/btaudio/btaudiod/internal/codec"
	"github.com/btaudio/btaudiod/internal/config"
	"github.com/btaudio/btaudiod/internal/rpcerr"
	"github.com/gin-gonic/gin"
)

// CodecFactory builds a codec.Adapter for a SelectCodec call; Server.Codecs
// is normally codec.New, kept as a field so tests can substitute a fake.
type CodecFactory func(name config.CodecName, p codec.Params) (codec.Adapter, error)

func writeError(c *gin.Context, err error) {
	var rerr *rpcerr.Error
	if errors.As(err, &rerr) {
		c.JSON(rerr.Code.HTTPStatus(), gin.H{"error": rerr.Message, "code": rerr.Code.String()})
		return
	}
	c.JSON(500, gin.H{"error": err.Error()})
}

func notFoundTransport(c *gin.Context) {
	writeError(c, rpcerr.New(rpcerr.NotConnected, "transport not found"))
}
