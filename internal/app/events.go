package app

import (
	"encoding/json"
	"time"

	"github.com/parley-app/parley/internal/core"
	"github.com/parley-app/parley/internal/domain"
)

// Wire views. Media flags are included so late joiners see current state.

type peerView struct {
	ConnID   domain.ConnID `json:"connection_id"`
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	Camera   bool          `json:"camera"`
	Mic      bool          `json:"mic"`
	Screen   bool          `json:"screen"`
	IsHost   bool          `json:"is_host"`
}

func viewOf(p *domain.Participant) peerView {
	return peerView{
		ConnID:   p.ConnID,
		UserID:   p.UserID,
		Username: p.Username,
		Camera:   p.Camera,
		Mic:      p.Mic,
		Screen:   p.Screen,
		IsHost:   p.IsHost,
	}
}

type guestView struct {
	ConnID      domain.ConnID `json:"connection_id"`
	UserID      domain.UserID `json:"user_id"`
	Username    string        `json:"username"`
	RequestedAt time.Time     `json:"requested_at"`
}

func guestViewOf(w *domain.WaitingGuest) guestView {
	return guestView{
		ConnID:      w.ConnID,
		UserID:      w.UserID,
		Username:    w.Username,
		RequestedAt: w.RequestedAt,
	}
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type existingParticipantsEvent struct {
	Type         string     `json:"type"`
	Participants []peerView `json:"participants"`
}

func existingParticipants(peers []*core.Peer) existingParticipantsEvent {
	views := make([]peerView, 0, len(peers))
	for _, p := range peers {
		views = append(views, viewOf(p.Info))
	}
	return existingParticipantsEvent{Type: "existing_participants", Participants: views}
}

type userJoinedEvent struct {
	Type        string   `json:"type"`
	Participant peerView `json:"participant"`
}

type userLeftEvent struct {
	Type   string        `json:"type"`
	ConnID domain.ConnID `json:"connection_id"`
	UserID domain.UserID `json:"user_id"`
}

type guestRequestedEvent struct {
	Type  string    `json:"type"`
	Guest guestView `json:"guest"`
}

type waitingEvent struct {
	Type string `json:"type"`
}

type rejectedEvent struct {
	Type string `json:"type"`
}

type meetingEndedEvent struct {
	Type string `json:"type"`
}

// signalEvent carries a relayed offer/answer/candidate. Payload is opaque:
// the relay never looks inside it.
type signalEvent struct {
	Type         string          `json:"type"`
	FromConnID   domain.ConnID   `json:"from_connection_id"`
	FromUserID   domain.UserID   `json:"from_user_id"`
	FromUsername string          `json:"from_username"`
	Payload      json.RawMessage `json:"payload"`
}

type mediaEvent struct {
	Type     string        `json:"type"`
	ConnID   domain.ConnID `json:"connection_id"`
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	Enabled  bool          `json:"enabled"`
}
