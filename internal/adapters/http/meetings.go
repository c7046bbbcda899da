package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/core"
	"github.com/parley-app/parley/internal/domain"
	"github.com/parley-app/parley/internal/store"
)

// MeetingController is the REST surface for room definitions and join
// requests. Live admission happens over the signaling socket; this layer only
// manages the records the coordinator consults.
type MeetingController struct {
	store    store.Store
	registry *core.Registry
}

func NewMeetingController(st store.Store, reg *core.Registry) *MeetingController {
	return &MeetingController{store: st, registry: reg}
}

type roomView struct {
	ID        domain.RoomID `json:"id"`
	Key       string        `json:"key"`
	Name      string        `json:"name"`
	Max       int           `json:"max_participants"`
	IsActive  bool          `json:"is_active"`
	Seated    int           `json:"seated"`
	Waiting   int           `json:"waiting"`
	CreatedAt string        `json:"created_at"`
}

func (ctl *MeetingController) view(room *domain.Room) roomView {
	seated, waiting := ctl.registry.Counts(room.ID)
	return roomView{
		ID:        room.ID,
		Key:       room.Key,
		Name:      room.Name,
		Max:       room.Max,
		IsActive:  room.IsActive,
		Seated:    seated,
		Waiting:   waiting,
		CreatedAt: room.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (ctl *MeetingController) Create(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required"`
		Max    int    `json:"max_participants"`
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Max == 0 {
		req.Max = domain.MaxParticipants
	}

	room, err := domain.NewRoom(req.Name, req.Max)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := ctl.store.CreateRoom(ctx, room); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	// The creator is the host and needs no admission decision; the record is
	// filed as joined. Seating still happens over the socket.
	err = ctl.store.UpsertParticipation(ctx, &domain.Membership{
		RoomID: room.ID,
		UserID: domain.UserID(req.UserID),
		Role:   domain.RoleHost,
		Status: domain.StatusJoined,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create host membership")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	log.Info().Str("module", "adapters.http").
		Str("room_id", string(room.ID)).
		Str("host", req.UserID).
		Msg("room created")
	c.JSON(http.StatusCreated, ctl.view(room))
}

func (ctl *MeetingController) ListActive(c *gin.Context) {
	rooms, err := ctl.store.ListActiveRooms(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list rooms"})
		return
	}
	views := make([]roomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, ctl.view(room))
	}
	c.JSON(http.StatusOK, gin.H{"rooms": views})
}

func (ctl *MeetingController) Get(c *gin.Context) {
	room, err := ctl.store.GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		ctl.roomError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctl.view(room))
}

func (ctl *MeetingController) GetByKey(c *gin.Context) {
	room, err := ctl.store.GetRoomByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		ctl.roomError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctl.view(room))
}

// Join files a pending participation record. The guest then opens the
// signaling socket and waits for the host's decision.
func (ctl *MeetingController) Join(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	roomID := domain.RoomID(c.Param("id"))
	room, err := ctl.store.GetRoom(ctx, roomID)
	if err != nil {
		ctl.roomError(c, err)
		return
	}
	if !room.IsActive {
		c.JSON(http.StatusGone, gin.H{"error": "room is closed"})
		return
	}

	uid := domain.UserID(req.UserID)
	existing, err := ctl.store.GetParticipation(ctx, uid, roomID)
	switch {
	case err == nil:
		switch existing.Status {
		case domain.StatusRejected:
			c.JSON(http.StatusForbidden, gin.H{"error": "you were not admitted to this room"})
			return
		case domain.StatusJoined:
			// Rejoin is fine, the socket side sorts out seating.
			c.JSON(http.StatusOK, gin.H{"status": string(existing.Status)})
			return
		case domain.StatusPending:
			c.JSON(http.StatusAccepted, gin.H{"status": string(existing.Status)})
			return
		}
		// left: fall through and file a fresh request
	case !errors.Is(err, store.ErrNotFound):
		log.Error().Err(err).Str("module", "adapters.http").Msg("get participation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join"})
		return
	}

	seated, _ := ctl.registry.Counts(roomID)
	if seated >= room.Max {
		c.JSON(http.StatusConflict, gin.H{"error": "room is full"})
		return
	}

	err = ctl.store.UpsertParticipation(ctx, &domain.Membership{
		RoomID: roomID,
		UserID: uid,
		Role:   domain.RoleParticipant,
		Status: domain.StatusPending,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("upsert participation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join"})
		return
	}

	log.Info().Str("module", "adapters.http").
		Str("room_id", string(roomID)).
		Str("user_id", req.UserID).
		Msg("join request filed")
	c.JSON(http.StatusAccepted, gin.H{"status": string(domain.StatusPending)})
}

func (ctl *MeetingController) Leave(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := ctl.store.RecordLeave(c.Request.Context(), domain.RoomID(c.Param("id")), domain.UserID(req.UserID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no participation record"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("record leave")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.StatusLeft)})
}

func (ctl *MeetingController) Participants(c *gin.Context) {
	members, err := ctl.store.ListParticipants(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list participants")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list participants"})
		return
	}

	type memberView struct {
		UserID domain.UserID `json:"user_id"`
		Role   domain.Role   `json:"role"`
		Status domain.Status `json:"status"`
	}
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberView{UserID: m.UserID, Role: m.Role, Status: m.Status})
	}
	c.JSON(http.StatusOK, gin.H{"participants": views})
}

// Close deactivates the room definition. Only the host may do it; the live
// meeting, if one is running, ends when the host's socket goes away.
func (ctl *MeetingController) Close(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	roomID := domain.RoomID(c.Param("id"))
	m, err := ctl.store.GetParticipation(ctx, domain.UserID(req.UserID), roomID)
	if err != nil || m.Role != domain.RoleHost {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the host can close the room"})
		return
	}

	if err := ctl.store.CloseRoom(ctx, roomID); err != nil {
		ctl.roomError(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("room_id", string(roomID)).Msg("room closed")
	c.JSON(http.StatusOK, gin.H{"is_active": false})
}

func (ctl *MeetingController) roomError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	log.Error().Err(err).Str("module", "adapters.http").Msg("room lookup")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "room lookup failed"})
}
