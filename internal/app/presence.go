package app

import (
	"github.com/parley-app/parley/internal/core"
	"github.com/parley-app/parley/internal/domain"
)

func mediaEventType(field core.MediaField) string {
	switch field {
	case core.MediaCamera:
		return "camera_toggled"
	case core.MediaMic:
		return "mic_toggled"
	default:
		return "screen_share_toggled"
	}
}

// SetMedia updates the authoritative media flag on the caller's seat and
// broadcasts the change to everyone else in the room. Callers that are not
// seated get the error back rather than a silent drop.
func (c *Coordinator) SetMedia(cid domain.ConnID, field core.MediaField, enabled bool) error {
	info, err := c.registry.SetMedia(cid, field, enabled)
	if err != nil {
		return err
	}
	roomID, ok := c.registry.Lookup(cid)
	if !ok {
		return core.ErrNotSeated
	}
	peers := c.registry.ListPeers(roomID, cid)
	c.broadcast(peers, mediaEvent{
		Type:     mediaEventType(field),
		ConnID:   info.ConnID,
		UserID:   info.UserID,
		Username: info.Username,
		Enabled:  enabled,
	})
	return nil
}
