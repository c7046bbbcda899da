package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/domain"
)

type hostActionPayload struct {
	Type   string `json:"type"`
	ConnID string `json:"connection_id"`
}

func (ctl *SignalWSController) handleAdmit(
	ctx context.Context,
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	var p hostActionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad admit payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.ConnID == "" {
		ctl.sendError(conn, "connection_id is required")
		return
	}

	log.Info().Str("module", "signal").
		Str("cid", string(cid)).
		Str("guest_cid", p.ConnID).
		Msg("admit")
	ctl.Coord.Admit(ctx, cid, domain.ConnID(p.ConnID))
}

func (ctl *SignalWSController) handleReject(
	ctx context.Context,
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	var p hostActionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad reject payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.ConnID == "" {
		ctl.sendError(conn, "connection_id is required")
		return
	}

	log.Info().Str("module", "signal").
		Str("cid", string(cid)).
		Str("guest_cid", p.ConnID).
		Msg("reject")
	ctl.Coord.Reject(ctx, cid, domain.ConnID(p.ConnID))
}
