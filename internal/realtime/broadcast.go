package realtime

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// NoExclude is passed as excludeUserID when a broadcast targets the
// whole session. User ids are never zero.
const NoExclude uint = 0

// Broadcast delivers a message to every live connection in the session
// except the optionally excluded one. Delivery is attempted
// independently per recipient: one broken connection never aborts
// delivery to the rest, it just gets evicted as if the network had
// dropped it. No separate notification is sent for such an eviction.
func (r *Registry) Broadcast(sessionID string, msg Envelope, excludeUserID uint) {
	frame, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).WithField("type", msg.Type).Error("failed to marshal broadcast message")
		return
	}

	hub, ok := r.sessions.Get(sessionID)
	if !ok {
		return
	}

	// Snapshot recipients under the session lock, deliver outside it:
	// enqueueing is non-blocking, but eviction re-enters the lock.
	hub.mu.Lock()
	recipients := make([]*Client, 0, len(hub.clients))
	for userID, client := range hub.clients {
		if excludeUserID != NoExclude && userID == excludeUserID {
			continue
		}
		recipients = append(recipients, client)
	}
	hub.mu.Unlock()

	var failed []*Client
	for _, client := range recipients {
		if err := client.enqueue(frame); err != nil {
			logrus.WithFields(logrus.Fields{
				"session_id": sessionID,
				"user_id":    client.userID,
				"type":       msg.Type,
			}).WithError(err).Warn("dropping unreachable recipient")
			failed = append(failed, client)
		}
	}

	// Identity-checked so an eviction cannot deregister a replacement
	// connection the same user established in the meantime.
	for _, client := range failed {
		r.DisconnectClient(client)
	}
}

// SendToOne delivers a message to exactly one live connection. A
// failed delivery evicts that recipient the same way a failed
// broadcast leg does.
func (r *Registry) SendToOne(sessionID string, userID uint, msg Envelope) {
	frame, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).WithField("type", msg.Type).Error("failed to marshal unicast message")
		return
	}

	hub, ok := r.sessions.Get(sessionID)
	if !ok {
		return
	}

	hub.mu.Lock()
	client, ok := hub.clients[userID]
	hub.mu.Unlock()
	if !ok {
		return
	}

	if err := client.enqueue(frame); err != nil {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"user_id":    userID,
			"type":       msg.Type,
		}).WithError(err).Warn("dropping unreachable recipient")
		r.DisconnectClient(client)
	}
}
