// Package roster keeps the role view of event members in sync with server responses.
// Board groups members by role in first-appearance order and keeps roles without members
// as pending until somebody is assigned. List reconciles cached lists with create, update
// and delete results without refetching.
package roster

import (
	"strings"

	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// RoleGroup is a role with the members assigned to it
type RoleGroup struct {
	Role    string
	Members []store.Member
	Pending bool // role has no members yet
}

// Group groups members by role, roles and members keep the order of first appearance
func Group(members []store.Member) []RoleGroup {
	b := NewBoard(members)
	return b.Groups()
}

// Board is a roster of one event
type Board struct {
	roles   []string // display order
	members map[string][]store.Member
}

// NewBoard makes a board from the members list returned by the server
func NewBoard(members []store.Member) *Board {
	b := &Board{members: map[string][]store.Member{}}
	for _, m := range members {
		b.Upsert(m)
	}
	return b
}

// AddRole registers a role with no members. Blank and already known roles are ignored.
func (b *Board) AddRole(name string) {
	name = strings.TrimSpace(name)
	if name == "" || b.hasRole(name) {
		return
	}
	b.roles = append(b.roles, name)
}

// Upsert applies an upsert response. The user leaves the previous role and joins the new one,
// a pending role becomes populated and the previous role stays in place even if empty.
func (b *Board) Upsert(m store.Member) {
	m.Role = strings.TrimSpace(m.Role)
	if m.Role == "" {
		return
	}
	if role, idx, ok := b.find(m.UserID); ok {
		if role == m.Role {
			b.members[role][idx] = m
			return
		}
		b.removeAt(role, idx)
	}
	b.AddRole(m.Role)
	b.members[m.Role] = append(b.members[m.Role], m)
}

// Remove applies a delete response, the role of the removed user stays as pending when empty
func (b *Board) Remove(userID int64) {
	if role, idx, ok := b.find(userID); ok {
		b.removeAt(role, idx)
	}
}

// Groups returns roles in display order with a copy of their members
func (b *Board) Groups() []RoleGroup {
	res := make([]RoleGroup, 0, len(b.roles))
	for _, role := range b.roles {
		members := append([]store.Member{}, b.members[role]...)
		res = append(res, RoleGroup{Role: role, Members: members, Pending: len(members) == 0})
	}
	return res
}

func (b *Board) hasRole(name string) bool {
	for _, r := range b.roles {
		if r == name {
			return true
		}
	}
	return false
}

func (b *Board) find(userID int64) (role string, idx int, ok bool) {
	for _, r := range b.roles {
		for i, m := range b.members[r] {
			if m.UserID == userID {
				return r, i, true
			}
		}
	}
	return "", 0, false
}

func (b *Board) removeAt(role string, idx int) {
	list := b.members[role]
	b.members[role] = append(list[:idx:idx], list[idx+1:]...)
}
