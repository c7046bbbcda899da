package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/app"
	"github.com/parley-app/parley/internal/domain"
)

func (ctl *SignalWSController) handleJoin(
	ctx context.Context,
	cid domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type   string `json:"type"`
		Room   string `json:"room"`
		UserID string `json:"user_id"`
		Name   string `json:"name,omitempty"`
		Camera bool   `json:"camera"`
		Mic    bool   `json:"mic"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.Room == "" || p.UserID == "" {
		ctl.sendError(conn, "room and user_id are required")
		return
	}
	if !ctl.joinLimit.Allow(domain.UserID(p.UserID)) {
		log.Warn().Str("module", "signal").Str("user_id", p.UserID).Msg("join rate limited")
		ctl.sendError(conn, "too many join attempts, slow down")
		return
	}

	log.Info().Str("module", "signal").
		Str("cid", string(cid)).
		Str("room_id", p.Room).
		Str("user_id", p.UserID).
		Msg("join")

	ctl.Coord.Join(ctx, conn, app.JoinRequest{
		RoomID:   domain.RoomID(p.Room),
		ConnID:   cid,
		UserID:   domain.UserID(p.UserID),
		Username: p.Name,
		Camera:   p.Camera,
		Mic:      p.Mic,
	})
}

// handleLeave drops the client out of its meeting without tearing down the
// socket, so it can join another room on the same connection.
func (ctl *SignalWSController) handleLeave(
	ctx context.Context,
	cid domain.ConnID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("leave")
	ctl.Coord.Disconnect(ctx, cid)
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
	}{Type: "left"})
}
