package web

import (
	"time"

	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/enums"
	"github.com/MusClub-NSU/MusClub-manager/app/reminder"
	"github.com/MusClub-NSU/MusClub-manager/app/roster"
	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// UserRequest is the body of user create and update, absent fields are kept on update
type UserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
}

// EventRequest is the body of event create and update, absent fields are kept on update
type EventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Venue       *string    `json:"venue"`
}

// MemberRequest is the body of member upsert
type MemberRequest struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

// SocialPostRequest is the body of social post generation
type SocialPostRequest struct {
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
}

// UserResponse is a user in api responses
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// EventResponse is an event in api responses
type EventResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	StartTime     time.Time `json:"startTime,omitzero"`
	EndTime       time.Time `json:"endTime,omitzero"`
	Venue         string    `json:"venue,omitempty"`
	AIDescription string    `json:"aiDescription,omitempty"`
	ParentID      int64     `json:"parentId,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

// MemberResponse is an event member in api responses
type MemberResponse struct {
	EventID  int64     `json:"eventId"`
	UserID   int64     `json:"userId"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	Role     string    `json:"role"`
	AddedAt  time.Time `json:"addedAt,omitzero"`
}

// RoleGroupResponse is a role with its members
type RoleGroupResponse struct {
	Role    string           `json:"role"`
	Members []MemberResponse `json:"members"`
	Pending bool             `json:"pending"`
}

// TreeNodeResponse is a node of the sub-event tree
type TreeNodeResponse struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	StartTime time.Time          `json:"startTime,omitzero"`
	Members   []MemberResponse   `json:"members"`
	Children  []TreeNodeResponse `json:"children"`
}

// NotificationResponse is a scheduled reminder
type NotificationResponse struct {
	ID        int64                    `json:"id"`
	EventID   int64                    `json:"eventId"`
	UserID    int64                    `json:"userId"`
	Email     string                   `json:"email,omitempty"`
	SendAt    time.Time                `json:"sendAt"`
	SentAt    time.Time                `json:"sentAt,omitzero"`
	Status    enums.NotificationStatus `json:"status"`
	Subject   string                   `json:"subject"`
	CreatedAt time.Time                `json:"createdAt,omitzero"`
}

// ScheduleResponse reports scheduled reminders
type ScheduleResponse struct {
	EventID          int64     `json:"eventId"`
	SendAt           time.Time `json:"sendAt"`
	Created          int       `json:"created"`
	SkippedNoEmail   int       `json:"skippedNoEmail"`
	SkippedDuplicate int       `json:"skippedDuplicate"`
}

// PageResponse is a page of items in the shape the client paginates on
type PageResponse[T any] struct {
	Content          []T  `json:"content"`
	TotalElements    int  `json:"totalElements"`
	TotalPages       int  `json:"totalPages"`
	Size             int  `json:"size"`
	Number           int  `json:"number"`
	First            bool `json:"first"`
	Last             bool `json:"last"`
	NumberOfElements int  `json:"numberOfElements"`
}

func toPage[S, T any](res store.PageResult[S], conv func(S) T) PageResponse[T] {
	content := make([]T, 0, len(res.Items))
	for _, it := range res.Items {
		content = append(content, conv(it))
	}
	return PageResponse[T]{
		Content:          content,
		TotalElements:    res.Total,
		TotalPages:       res.TotalPages(),
		Size:             res.Size,
		Number:           res.Number,
		First:            res.First(),
		Last:             res.Last(),
		NumberOfElements: len(content),
	}
}

func toUser(u store.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

func toEvent(e store.Event) EventResponse {
	return EventResponse{ID: e.ID, Title: e.Title, Description: e.Description, StartTime: e.StartTime, EndTime: e.EndTime,
		Venue: e.Venue, AIDescription: e.AIDescription, ParentID: e.ParentID, CreatedAt: e.CreatedAt}
}

func toMember(m store.Member) MemberResponse {
	return MemberResponse{EventID: m.EventID, UserID: m.UserID, Username: m.Username, Email: m.Email, Role: m.Role, AddedAt: m.AddedAt}
}

func toMembers(members []store.Member) []MemberResponse {
	res := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		res = append(res, toMember(m))
	}
	return res
}

func toRoleGroups(groups []roster.RoleGroup) []RoleGroupResponse {
	res := make([]RoleGroupResponse, 0, len(groups))
	for _, g := range groups {
		res = append(res, RoleGroupResponse{Role: g.Role, Members: toMembers(g.Members), Pending: g.Pending})
	}
	return res
}

func toTree(n club.TreeNode) TreeNodeResponse {
	res := TreeNodeResponse{ID: n.ID, Title: n.Title, StartTime: n.StartTime, Members: toMembers(n.Members),
		Children: make([]TreeNodeResponse, 0, len(n.Children))}
	for _, c := range n.Children {
		res.Children = append(res.Children, toTree(c))
	}
	return res
}

func toNotification(n store.Notification) NotificationResponse {
	return NotificationResponse{ID: n.ID, EventID: n.EventID, UserID: n.UserID, Email: n.Email, SendAt: n.SendAt,
		SentAt: n.SentAt, Status: n.Status, Subject: n.Subject, CreatedAt: n.CreatedAt}
}

func toSchedule(s reminder.Summary) ScheduleResponse {
	return ScheduleResponse{EventID: s.EventID, SendAt: s.SendAt, Created: s.Created, SkippedNoEmail: s.SkippedNoEmail,
		SkippedDuplicate: s.SkippedDuplicate}
}

func (r EventRequest) input() club.EventInput {
	in := club.EventInput{Title: deref(r.Title), Description: deref(r.Description), Venue: deref(r.Venue)}
	if r.StartTime != nil {
		in.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		in.EndTime = *r.EndTime
	}
	return in
}

func (r EventRequest) patch() club.EventPatch {
	return club.EventPatch{Title: r.Title, Description: r.Description, StartTime: r.StartTime, EndTime: r.EndTime, Venue: r.Venue}
}

func (r UserRequest) input() club.UserInput {
	return club.UserInput{Username: deref(r.Username), Email: deref(r.Email), Role: deref(r.Role)}
}

func (r UserRequest) patch() club.UserPatch {
	return club.UserPatch{Username: r.Username, Email: r.Email, Role: r.Role}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
