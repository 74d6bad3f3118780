package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"arena/server/internal/net/proto"
	"arena/server/internal/replication"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber owns the outbound side of one player's connection. Writes go
// through a bounded queue drained by a dedicated goroutine so the tick never
// waits on a socket.
type Subscriber struct {
	playerID string
	conn     Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once

	lastCommandSeq atomic.Uint64
}

func newSubscriber(playerID string, conn Conn, queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = sendQueueSize
	}
	sub := &Subscriber{
		playerID: playerID,
		conn:     conn,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
	go sub.writePump()
	return sub
}

// Enqueue queues a frame. It reports false when the connection is closed or
// the client is too far behind to keep.
func (s *Subscriber) Enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// Done is closed once the subscriber stops writing.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) LastCommandSeq() uint64 {
	return s.lastCommandSeq.Load()
}

func (s *Subscriber) StoreLastCommandSeq(seq uint64) {
	s.lastCommandSeq.Store(seq)
}

// Close stops the write pump and closes the connection. Safe to call more
// than once.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Subscriber) writePump() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.Close()
				return
			}
		}
	}
}

// subscriberSet is the websocket-backed replication transport.
type subscriberSet struct {
	mu        sync.RWMutex
	byID      map[string]*Subscriber
	queueSize int
	logger    zerolog.Logger
}

func newSubscriberSet(queueSize int, logger zerolog.Logger) *subscriberSet {
	return &subscriberSet{byID: make(map[string]*Subscriber), queueSize: queueSize, logger: logger}
}

// attach registers a connection for the player and returns any subscriber it
// replaced.
func (s *subscriberSet) attach(playerID string, conn Conn) (*Subscriber, *Subscriber) {
	sub := newSubscriber(playerID, conn, s.queueSize)
	s.mu.Lock()
	previous := s.byID[playerID]
	s.byID[playerID] = sub
	s.mu.Unlock()
	return sub, previous
}

// detach removes the player's subscriber, if it is still the given one. A nil
// sub removes whatever is registered.
func (s *subscriberSet) detach(playerID string, sub *Subscriber) *Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[playerID]
	if !ok || (sub != nil && current != sub) {
		return nil
	}
	delete(s.byID, playerID)
	return current
}

func (s *subscriberSet) get(playerID string) (*Subscriber, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byID[playerID]
	return sub, ok
}

func (s *subscriberSet) Send(playerID string, msg replication.Message) error {
	sub, ok := s.get(playerID)
	if !ok {
		return replication.ErrRecipientGone
	}
	data, err := proto.Encode(msg)
	if err != nil {
		return err
	}
	if !sub.Enqueue(data) {
		// A client that cannot keep up is cut loose; it resyncs on reconnect.
		s.logger.Warn().Str("player", playerID).Str("type", msg.MessageType()).Msg("send queue full, closing connection")
		sub.Close()
		return replication.ErrRecipientGone
	}
	return nil
}
