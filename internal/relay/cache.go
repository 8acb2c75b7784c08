package relay

import "sync"

// Cache memoizes peer descriptors obtained from the transport so repeated
// lookups (reply senders in particular) avoid network round trips.
//
// The registry and the startup-resolved entries are populated before the
// consumer loop starts; anything added later goes through the single-writer
// lock below.
type Cache struct {
	mu     sync.RWMutex
	chats  map[int64]*Chat
	byName map[string]*Chat
	users  map[int64]*User
}

// NewCache creates an empty entity cache.
func NewCache() *Cache {
	return &Cache{
		chats:  make(map[int64]*Chat),
		byName: make(map[string]*Chat),
		users:  make(map[int64]*User),
	}
}

// Chat returns the cached descriptor for a chat id, nil on miss.
func (c *Cache) Chat(id int64) *Chat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chats[CanonicalChatID(id)]
}

// ChatByName returns the cached descriptor for a username, nil on miss.
func (c *Cache) ChatByName(username string) *Chat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byName[NormalizeUsername(username)]
}

// PutChat stores a chat descriptor under its canonical id and username.
func (c *Cache) PutChat(chat *Chat) {
	if chat == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats[CanonicalChatID(chat.ID)] = chat
	if chat.Username != "" {
		c.byName[NormalizeUsername(chat.Username)] = chat
	}
}

// User returns the cached descriptor for a user id, nil on miss.
func (c *Cache) User(id int64) *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.users[id]
}

// PutUser stores a user descriptor.
func (c *Cache) PutUser(u *User) {
	if u == nil || u.ID == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}
