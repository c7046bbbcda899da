package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/app"
	"github.com/parley-app/parley/internal/domain"
)

// handleRelay forwards an SDP offer/answer or ICE candidate to one peer in the
// sender's room. The payload is passed through opaque.
func (ctl *SignalWSController) handleRelay(
	cid domain.ConnID,
	conn *WsSignalConn,
	kind app.SignalKind,
	data []byte,
) {
	type relayPayload struct {
		Type    string          `json:"type"`
		To      string          `json:"to"`
		Payload json.RawMessage `json:"payload"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("bad relay payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.To == "" {
		ctl.sendError(conn, "to is required")
		return
	}

	err := ctl.Coord.Relay(cid, domain.ConnID(p.To), kind, p.Payload)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrNotInRoom):
		ctl.sendError(conn, "you are not in a meeting")
	case errors.Is(err, app.ErrTargetNotFound):
		ctl.sendError(conn, "target participant not found")
	case errors.Is(err, app.ErrTargetDifferentRoom):
		ctl.sendError(conn, "target is not in your meeting")
	default:
		log.Error().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("relay")
		ctl.sendError(conn, "relay failed")
	}
}
