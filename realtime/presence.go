package realtime

import "sync"

// Presence tracks which identities are joined to which chats. Membership
// here is advisory and independent of the connection registry: a user can be
// connected without being joined anywhere. Tracking the chat id (rather than
// a single global flag) lets the disconnect path scope its ONLINE_USERS
// broadcast to the chats the user was actually present in.
type Presence struct {
	mu     sync.RWMutex
	joined map[string]map[string]struct{} // userID -> set of chatIDs
}

func NewPresence() *Presence {
	return &Presence{joined: make(map[string]map[string]struct{})}
}

// Join marks the identity online in the given chat. Idempotent.
func (p *Presence) Join(userID, chatID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	chats, ok := p.joined[userID]
	if !ok {
		chats = make(map[string]struct{})
		p.joined[userID] = chats
	}
	chats[chatID] = struct{}{}
}

// Leave removes the identity from the given chat. Idempotent; the user entry
// is dropped entirely once its last chat is left, so the map does not grow
// unbounded.
func (p *Presence) Leave(userID, chatID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if chats, ok := p.joined[userID]; ok {
		delete(chats, chatID)
		if len(chats) == 0 {
			delete(p.joined, userID)
		}
	}
}

// Drop removes the identity from every chat and returns the chats it was
// joined to, for scoping the disconnect broadcast.
func (p *Presence) Drop(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	chats, ok := p.joined[userID]
	if !ok {
		return nil
	}
	delete(p.joined, userID)

	ids := make([]string, 0, len(chats))
	for id := range chats {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns the identities currently joined to at least one chat.
// Order is not significant.
func (p *Presence) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.joined))
	for id := range p.joined {
		ids = append(ids, id)
	}
	return ids
}
