package services

import (
	"fmt"
	"log"
	"sync"

	"eagletask/internal/crypto"
)

// CredentialProvider hands out decrypted API keys for an account, or fails
// with ErrCredentialExpired when no live session holds them.
type CredentialProvider interface {
	DecryptCanvasKey(userID int64) (string, error)
	DecryptTodoistKey(userID int64) (string, error)
}

type sessionEntry struct {
	userID          int64
	canvasTokenEnc  []byte
	todoistTokenEnc []byte
	sessionKey      string
}

// CredentialCache is a capacity-bounded cache of session-sealed API token
// pairs, keyed by session id. Entries are installed at login, dropped at
// logout, and evicted oldest-first under capacity pressure. Tokens are held
// sealed under a per-session key and only opened on demand.
type CredentialCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*sessionEntry
	byUser   map[int64]string // userID -> most recent session id
	order    []string         // insertion order for eviction
}

func NewCredentialCache(capacity int) *CredentialCache {
	if capacity <= 0 {
		capacity = 512
	}
	return &CredentialCache{
		capacity: capacity,
		entries:  make(map[string]*sessionEntry),
		byUser:   make(map[int64]string),
	}
}

// PutSession installs the sealed token pair for a fresh login. A newer
// session for the same user supersedes the old one.
func (c *CredentialCache) PutSession(sessionID string, userID int64, canvasTokenEnc, todoistTokenEnc []byte, sessionKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.byUser[userID]; ok && old != sessionID {
		delete(c.entries, old)
	}
	if _, ok := c.entries[sessionID]; !ok {
		c.order = append(c.order, sessionID)
	}
	c.entries[sessionID] = &sessionEntry{
		userID:          userID,
		canvasTokenEnc:  canvasTokenEnc,
		todoistTokenEnc: todoistTokenEnc,
		sessionKey:      sessionKey,
	}
	c.byUser[userID] = sessionID

	for len(c.entries) > c.capacity {
		c.evictOldestLocked()
	}
}

// DropSession removes a session at logout.
func (c *CredentialCache) DropSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[sessionID]
	if !ok {
		return
	}
	delete(c.entries, sessionID)
	if c.byUser[entry.userID] == sessionID {
		delete(c.byUser, entry.userID)
	}
}

func (c *CredentialCache) DecryptCanvasKey(userID int64) (string, error) {
	return c.open(userID, func(e *sessionEntry) []byte { return e.canvasTokenEnc })
}

func (c *CredentialCache) DecryptTodoistKey(userID int64) (string, error) {
	return c.open(userID, func(e *sessionEntry) []byte { return e.todoistTokenEnc })
}

func (c *CredentialCache) open(userID int64, pick func(*sessionEntry) []byte) (string, error) {
	c.mu.Lock()
	sessionID, ok := c.byUser[userID]
	var entry *sessionEntry
	if ok {
		entry = c.entries[sessionID]
	}
	c.mu.Unlock()

	if entry == nil {
		return "", fmt.Errorf("%w: user %d has no live session", ErrCredentialExpired, userID)
	}
	secret, err := crypto.DecryptString(pick(entry), entry.sessionKey)
	if err != nil {
		// A sealed entry that no longer opens is as good as gone.
		log.Printf("[creds][open][err] user=%d: %v", userID, err)
		return "", fmt.Errorf("%w: %v", ErrCredentialExpired, err)
	}
	return secret, nil
}

func (c *CredentialCache) evictOldestLocked() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		entry, ok := c.entries[oldest]
		if !ok {
			continue // already dropped or superseded
		}
		delete(c.entries, oldest)
		if c.byUser[entry.userID] == oldest {
			delete(c.byUser, entry.userID)
		}
		log.Printf("[creds][evict] session=%s user=%d", oldest, entry.userID)
		return
	}
}
