package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"

	"github.com/parley-app/parley/internal/config"
)

// ICEServersHandler hands out the STUN/TURN set in the exact shape clients
// feed into RTCPeerConnection.
func ICEServersHandler(cfg *config.Config) gin.HandlerFunc {
	servers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		ice := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			ice.Username = s.Username
			ice.Credential = s.Credential
			ice.CredentialType = webrtc.ICECredentialTypePassword
		}
		servers = append(servers, ice)
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ice_servers": servers})
	}
}
