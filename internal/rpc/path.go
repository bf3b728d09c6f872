// SPDX-License-Identifier: AGPL-3.0-or-later
package rpc

import "github.com/gin-gonic/gin"

// transportPath reconstructs the graph.Transport.Path a route's
// :hci/:device/:transport segments refer to. internal/engine constructs
// every Transport with this same convention so FindTransport resolves it.
func transportPath(hci, device, transport string) string {
	return "/" + hci + "/dev_" + device + "/" + transport
}

func routeTransportPath(c *gin.Context) string {
	return transportPath(c.Param("hci"), c.Param("device"), c.Param("transport"))
}
