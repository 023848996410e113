package jobs

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// EventStreamer fans job snapshots out to websocket subscribers, keyed by job
// id. The orchestrator broadcasts on every state transition and closes the
// stream once the job is terminal.
type EventStreamer struct {
	mu          sync.RWMutex
	subscribers map[string][]*websocket.Conn
}

func NewEventStreamer() *EventStreamer {
	return &EventStreamer{
		subscribers: make(map[string][]*websocket.Conn),
	}
}

// Subscribe registers conn for updates about one job.
func (es *EventStreamer) Subscribe(jobID string, conn *websocket.Conn) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.subscribers[jobID] = append(es.subscribers[jobID], conn)
}

// SubscribeAndSend registers conn and delivers the current snapshot while
// holding the write lock. Broadcast writes under the read lock, so the
// initial send can never interleave with a transition write on the same
// connection; after registration the job's single owning task is the only
// writer.
func (es *EventStreamer) SubscribeAndSend(jobID string, conn *websocket.Conn, snapshot Job) {
	payload, err := json.Marshal(snapshot)

	es.mu.Lock()
	defer es.mu.Unlock()
	es.subscribers[jobID] = append(es.subscribers[jobID], conn)
	if err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}

// Unsubscribe removes conn from the job's subscriber list.
func (es *EventStreamer) Unsubscribe(jobID string, conn *websocket.Conn) {
	es.mu.Lock()
	defer es.mu.Unlock()
	subs := es.subscribers[jobID]
	for i, s := range subs {
		if s == conn {
			es.subscribers[jobID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Broadcast sends the snapshot, JSON-encoded, to every subscriber of the job.
// A write failure only drops that subscriber's message; the connection is
// reaped when its reader loop exits.
func (es *EventStreamer) Broadcast(snapshot Job) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}

	es.mu.RLock()
	defer es.mu.RUnlock()
	for _, conn := range es.subscribers[snapshot.ID] {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}

// Close closes every subscriber connection for the job and forgets them.
func (es *EventStreamer) Close(jobID string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	for _, conn := range es.subscribers[jobID] {
		conn.Close()
	}
	delete(es.subscribers, jobID)
}
