package group

import (
	"sort"
	"sync"

	"chatrelay/internal/domain"
)

// Directory owns group membership. Group names are a flat namespace shared by
// all users; there is no ownership or ACL beyond membership itself. A group
// whose last member is removed is dissolved: deleted from the directory, not
// flagged.
type Directory struct {
	mu     sync.RWMutex
	groups map[string]*domain.Group
}

func NewDirectory() *Directory {
	return &Directory{groups: make(map[string]*domain.Group)}
}

// Restore replaces the directory contents with a loaded snapshot.
func (d *Directory) Restore(snap *domain.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name, doc := range snap.Groups {
		if doc.Group != nil && len(doc.Group.Members) > 0 {
			d.groups[name] = doc.Group
		}
	}
}

// Create makes a new group whose member set is the union of initialMembers and
// the creator, de-duplicated in first-seen order. Fails with ErrAlreadyExists
// if the name is taken.
func (d *Directory) Create(name, creator string, initialMembers []string) (*domain.Group, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.groups[name]; ok {
		return nil, domain.ErrAlreadyExists
	}

	seen := map[string]struct{}{creator: {}}
	members := []string{creator}
	for _, m := range initialMembers {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		members = append(members, m)
	}

	g := &domain.Group{Name: name, Members: members}
	d.groups[name] = g
	return g, nil
}

// AddMembers appends newMembers to the group, skipping identities already
// present, and returns the subset actually added. Fails with ErrNotFound if
// the group does not exist.
func (d *Directory) AddMembers(name string, newMembers []string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, ok := d.groups[name]
	if !ok {
		return nil, domain.ErrNotFound
	}

	var added []string
	for _, m := range newMembers {
		if m == "" || g.HasMember(m) {
			continue
		}
		g.Members = append(g.Members, m)
		added = append(added, m)
	}
	return added, nil
}

// RemoveMember removes identity from the group. Removing the last member
// dissolves the group entirely; the second return reports dissolution so the
// caller can discard history and durable state.
func (d *Directory) RemoveMember(name, identity string) (dissolved bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, ok := d.groups[name]
	if !ok {
		return false, domain.ErrNotFound
	}

	found := false
	for i, m := range g.Members {
		if m == identity {
			g.Members = append(g.Members[:i:i], g.Members[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false, domain.ErrNotFound
	}

	if len(g.Members) == 0 {
		delete(d.groups, name)
		return true, nil
	}
	return false, nil
}

// Leave is RemoveMember under another name; the router attaches different
// system-message wording to the two operations.
func (d *Directory) Leave(name, identity string) (dissolved bool, err error) {
	return d.RemoveMember(name, identity)
}

// Members returns the group's ordered member set, or an empty slice if the
// group does not exist.
func (d *Directory) Members(name string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	g, ok := d.groups[name]
	if !ok {
		return nil
	}
	out := make([]string, len(g.Members))
	copy(out, g.Members)
	return out
}

// Get returns a copy of the group, or nil if it does not exist.
func (d *Directory) Get(name string) *domain.Group {
	d.mu.RLock()
	defer d.mu.RUnlock()

	g, ok := d.groups[name]
	if !ok {
		return nil
	}
	members := make([]string, len(g.Members))
	copy(members, g.Members)
	return &domain.Group{Name: g.Name, Members: members}
}

// IsMember reports whether identity currently belongs to the group.
func (d *Directory) IsMember(name, identity string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	g, ok := d.groups[name]
	return ok && g.HasMember(identity)
}

// GroupsContaining returns every group identity belongs to, sorted by name.
func (d *Directory) GroupsContaining(identity string) []*domain.Group {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*domain.Group
	for _, g := range d.groups {
		if g.HasMember(identity) {
			members := make([]string, len(g.Members))
			copy(members, g.Members)
			out = append(out, &domain.Group{Name: g.Name, Members: members})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
