package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/roster"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.club.CreateUser(r.Context(), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toUser(u))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.club.ListUsers(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPage(res, toUser))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.club.GetUser(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUser(u))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req UserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.club.UpdateUser(r.Context(), id, req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUser(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.club.DeleteUser(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.club.CreateEvent(r.Context(), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toEvent(ev))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.club.ListEvents(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPage(res, toEvent))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.club.GetEvent(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toEvent(ev))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req EventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.club.UpdateEvent(r.Context(), id, req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toEvent(ev))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.club.DeleteEvent(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	members, err := s.club.ListMembers(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMembers(members))
}

func (s *Server) handleUpsertMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req MemberRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.UserID <= 0 {
		s.writeJSONError(w, http.StatusBadRequest, "userId is required")
		return
	}
	m, err := s.club.UpsertMember(r.Context(), id, req.UserID, req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMember(m))
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.club.RemoveMember(r.Context(), id, userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRoles returns event members grouped by role in first-appearance order.
// Each ?role= value adds a pending role, kept empty until somebody is assigned.
func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	members, err := s.club.ListMembers(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	board := roster.NewBoard(members)
	for _, role := range r.URL.Query()["role"] {
		board.AddRole(role)
	}
	s.writeJSON(w, http.StatusOK, toRoleGroups(board.Groups()))
}

func (s *Server) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req EventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.club.CreateSubEvent(r.Context(), id, req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toEvent(ev))
}

func (s *Server) handleAttachChild(w http.ResponseWriter, r *http.Request) {
	id, childID, err := parentAndChild(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.club.AttachChild(r.Context(), id, childID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDetachChild(w http.ResponseWriter, r *http.Request) {
	id, childID, err := parentAndChild(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.club.DetachChild(r.Context(), id, childID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	depth, err := queryInt(r, "depth", club.DefaultTreeDepth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tree, err := s.club.Tree(r.Context(), id, depth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTree(tree))
}

func (s *Server) handleScheduleNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.reminders.Schedule(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSchedule(res))
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.reminders.List(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		res = append(res, toNotification(n))
	}
	s.writeJSON(w, http.StatusOK, res)
}

// handlePoster generates a poster description, ?save=true stores it in the event
func (s *Server) handlePoster(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	save := false
	if v := r.URL.Query().Get("save"); v != "" {
		if save, err = strconv.ParseBool(v); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "invalid save parameter")
			return
		}
	}
	text, err := s.ai.Poster(r.Context(), id, save)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"description": text})
}

// handleSocialPost generates a social media post, empty body means general platform and casual tone
func (s *Server) handleSocialPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req SocialPostRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.writeError(w, r, err)
		return
	}
	post, err := s.ai.Social(r.Context(), id, req.Platform, req.Tone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, post)
}

func parentAndChild(r *http.Request) (parentID, childID int64, err error) {
	if parentID, err = pathID(r, "id"); err != nil {
		return 0, 0, err
	}
	if childID, err = pathID(r, "childId"); err != nil {
		return 0, 0, err
	}
	return parentID, childID, nil
}
