package club

import (
	"context"
	"strings"
	"time"

	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// tree depth limits
const (
	DefaultTreeDepth = 3
	MaxTreeDepth     = 10
)

// TreeNode is an event with its members and sub-events down to the requested depth
type TreeNode struct {
	ID        int64
	Title     string
	StartTime time.Time
	Members   []store.Member
	Children  []TreeNode
}

// ListMembers returns members of an existing event
func (s *Service) ListMembers(ctx context.Context, eventID int64) ([]store.Member, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	res, err := s.store.ListMembers(ctx, eventID)
	if err != nil {
		return nil, translate("members", err)
	}
	return res, nil
}

// UpsertMember assigns the user to the event under the role, changing the role of an existing member
func (s *Service) UpsertMember(ctx context.Context, eventID, userID int64, role string) (store.Member, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return store.Member{}, err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return store.Member{}, err
	}
	role = strings.TrimSpace(role)
	if err := required("role", role, maxMemberRoleLen); err != nil {
		return store.Member{}, err
	}
	m, err := s.store.UpsertMember(ctx, eventID, userID, role, s.now())
	if err != nil {
		return store.Member{}, translate("member", err)
	}
	return m, nil
}

// RemoveMember removes the user from the event
func (s *Service) RemoveMember(ctx context.Context, eventID, userID int64) error {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return err
	}
	return translate("member", s.store.DeleteMember(ctx, eventID, userID))
}

// CreateSubEvent creates an event attached to an existing parent
func (s *Service) CreateSubEvent(ctx context.Context, parentID int64, in EventInput) (store.Event, error) {
	if _, err := s.GetEvent(ctx, parentID); err != nil {
		return store.Event{}, err
	}
	return s.createEvent(ctx, in, parentID)
}

// AttachChild makes child a sub-event of parent. The child can't become its own ancestor.
func (s *Service) AttachChild(ctx context.Context, parentID, childID int64) error {
	parent, err := s.GetEvent(ctx, parentID)
	if err != nil {
		return err
	}
	if _, err = s.GetEvent(ctx, childID); err != nil {
		return err
	}
	cycle, err := s.isAncestor(ctx, childID, parent)
	if err != nil {
		return err
	}
	if cycle {
		return validationf("cycle detected")
	}
	return translate("event", s.store.SetParent(ctx, childID, parentID))
}

// DetachChild makes child a top-level event, it must be a direct child of parent
func (s *Service) DetachChild(ctx context.Context, parentID, childID int64) error {
	if _, err := s.GetEvent(ctx, parentID); err != nil {
		return err
	}
	child, err := s.GetEvent(ctx, childID)
	if err != nil {
		return err
	}
	if child.ParentID != parentID {
		return validationf("not a direct child")
	}
	return translate("event", s.store.SetParent(ctx, childID, 0))
}

// isAncestor walks up from node and reports if candidateID is node itself or one of its ancestors
func (s *Service) isAncestor(ctx context.Context, candidateID int64, node store.Event) (bool, error) {
	seen := map[int64]bool{}
	for cur := node; ; {
		if cur.ID == candidateID {
			return true, nil
		}
		if cur.ParentID == 0 || seen[cur.ID] {
			return false, nil
		}
		seen[cur.ID] = true
		next, err := s.store.GetEvent(ctx, cur.ParentID)
		if err != nil {
			return false, translate("event", err)
		}
		cur = next
	}
}

// Tree returns the event with members and sub-events. Depth 1 is the event alone,
// values below 1 are raised to 1 and values above MaxTreeDepth are capped.
func (s *Service) Tree(ctx context.Context, eventID int64, depth int) (TreeNode, error) {
	root, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return TreeNode{}, err
	}
	depth = max(1, min(depth, MaxTreeDepth))
	return s.buildTree(ctx, root, depth)
}

func (s *Service) buildTree(ctx context.Context, ev store.Event, depth int) (TreeNode, error) {
	members, err := s.store.ListMembers(ctx, ev.ID)
	if err != nil {
		return TreeNode{}, translate("members", err)
	}
	node := TreeNode{ID: ev.ID, Title: ev.Title, StartTime: ev.StartTime, Members: members, Children: []TreeNode{}}
	if depth <= 1 {
		return node, nil
	}
	children, err := s.store.Children(ctx, ev.ID)
	if err != nil {
		return TreeNode{}, translate("events", err)
	}
	for _, ch := range children {
		sub, err := s.buildTree(ctx, ch, depth-1)
		if err != nil {
			return TreeNode{}, err
		}
		node.Children = append(node.Children, sub)
	}
	return node, nil
}
