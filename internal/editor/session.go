package editor

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/talgya/hexrealm/internal/world"
)

const (
	recentChanges = 64 // Changes kept for catch-up on subscribe
	subscriberBuf = 16
)

// Session is the sole writer for one realm. All methods are safe for
// concurrent use; edits are applied one at a time in arrival order.
type Session struct {
	id string

	mu       sync.Mutex
	mut      *world.Mutator
	revision uint64
	updated  time.Time
	recent   []Change
	unsaved  []Change // Committed since the last MarkSaved
	subs     map[int]chan Change
	nextSub  int
}

// NewSession takes ownership of r. The caller must not touch r afterwards.
func NewSession(id string, r *world.Realm) *Session {
	return &Session{
		id:   id,
		mut:  world.NewMutator(r),
		subs: make(map[int]chan Change),
	}
}

// ID returns the realm id the session edits.
func (s *Session) ID() string {
	return s.id
}

// Apply runs one edit. On success the revision advances and the change is
// broadcast; on failure the realm is unchanged and the *world.Error is
// returned as is.
func (s *Session) Apply(e Edit) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hexes, myth, err := apply(s.mut, e)
	if err != nil {
		return Change{}, err
	}

	s.revision++
	s.updated = time.Now()
	ch := Change{
		Revision: s.revision,
		Op:       e.Op,
		Hexes:    hexes,
		Myth:     myth,
		At:       s.updated,
	}
	if ch.Hexes == nil {
		ch.Hexes = []world.Hex{}
	}
	if seat := s.mut.Realm().SeatOfPower; seat != nil {
		c := *seat
		ch.Seat = &c
	}

	s.recent = append(s.recent, ch)
	if len(s.recent) > recentChanges {
		s.recent = s.recent[len(s.recent)-recentChanges:]
	}
	s.unsaved = append(s.unsaved, ch)
	for id, sub := range s.subs {
		select {
		case sub <- ch:
		default:
			slog.Warn("dropping slow edit subscriber", "realm", s.id, "sub_id", id)
			close(sub)
			delete(s.subs, id)
		}
	}

	slog.Debug("edit applied", "realm", s.id, "op", e.Op, "hexes", len(hexes), "revision", s.revision)
	return ch, nil
}

// Revision returns the number of edits committed since the session opened.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Updated returns when the last edit was committed, or the zero time if
// there has been none.
func (s *Session) Updated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

// Snapshot returns a deep copy of the current realm.
func (s *Session) Snapshot() *world.Realm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mut.Realm().Clone()
}

// Checkpoint returns a deep copy of the current realm, the revision it
// reflects, and every change committed since the last MarkSaved.
func (s *Session) Checkpoint() (*world.Realm, uint64, []Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mut.Realm().Clone(), s.revision, append([]Change(nil), s.unsaved...)
}

// MarkSaved forgets the unsaved changes up to and including rev.
func (s *Session) MarkSaved(rev uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := 0
	for i < len(s.unsaved) && s.unsaved[i].Revision <= rev {
		i++
	}
	s.unsaved = append(s.unsaved[:0:0], s.unsaved[i:]...)
}

// Dirty reports whether any committed change has not been marked saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unsaved) > 0
}

// Hex returns a copy of the hex at c.
func (s *Session) Hex(c world.HexCoord) (world.Hex, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.mut.Realm().Get(c)
	if h == nil {
		return world.Hex{}, false
	}
	return *h, true
}

// Encode serializes the current realm.
func (s *Session) Encode() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return world.Encode(s.mut.Realm())
}

// Subscribe registers for every future change and returns up to catchUp of
// the latest past changes, oldest first. No change appears both in the
// catch-up and on the channel. The channel is closed if the subscriber falls
// behind or the session is closed.
func (s *Session) Subscribe(catchUp int) (int, <-chan Change, []Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.recent) - catchUp
	if start < 0 {
		start = 0
	}
	past := append([]Change(nil), s.recent[start:]...)

	s.nextSub++
	ch := make(chan Change, subscriberBuf)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch, past
}

// Unsubscribe drops a subscription. Unknown ids are ignored.
func (s *Session) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

// Close ends every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// Registry holds the open sessions, keyed by realm id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	loads    singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the open session for id.
func (g *Registry) Get(id string) (*Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sessions[id]
	return s, ok
}

// Open returns the session for id, calling load to fetch the realm if no
// session is open yet. Concurrent opens of the same id share one load.
func (g *Registry) Open(id string, load func() (*world.Realm, error)) (*Session, error) {
	if s, ok := g.Get(id); ok {
		return s, nil
	}
	v, err, _ := g.loads.Do(id, func() (any, error) {
		if s, ok := g.Get(id); ok {
			return s, nil
		}
		r, err := load()
		if err != nil {
			return nil, err
		}
		return g.Put(id, r), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Put opens a session for r, replacing and closing any previous one.
func (g *Registry) Put(id string, r *world.Realm) *Session {
	s := NewSession(id, r)
	g.mu.Lock()
	prev := g.sessions[id]
	g.sessions[id] = s
	g.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return s
}

// Remove closes and forgets the session for id.
func (g *Registry) Remove(id string) {
	g.mu.Lock()
	s := g.sessions[id]
	delete(g.sessions, id)
	g.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// IDs lists the open sessions, sorted.
func (g *Registry) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.sessions))
	for id := range g.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
