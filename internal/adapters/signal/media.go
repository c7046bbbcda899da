package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/core"
	"github.com/parley-app/parley/internal/domain"
)

func (ctl *SignalWSController) handleMedia(
	cid domain.ConnID,
	conn *WsSignalConn,
	field core.MediaField,
	data []byte,
) {
	type mediaPayload struct {
		Type    string `json:"type"`
		Enabled bool   `json:"enabled"`
	}
	var p mediaPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad media payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	if err := ctl.Coord.SetMedia(cid, field, p.Enabled); err != nil {
		if errors.Is(err, core.ErrNotSeated) {
			ctl.sendError(conn, "you are not in a meeting")
			return
		}
		log.Error().Err(err).Str("module", "signal").Msg("set media")
		ctl.sendError(conn, "media update failed")
	}
}
