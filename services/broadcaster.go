package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"quizlive/models"
)

// Broadcaster fans game state changes out to every participant's live
// stream, across all server processes. Outbound, Publish computes one
// role-filtered view per participant and sends each over the distributed
// channel; inbound, a per-process subscription re-delivers every channel
// message to the matching local streams.
type Broadcaster struct {
	store     *GameStore
	channel   Channel
	heartbeat time.Duration

	mu   sync.RWMutex
	subs map[string]map[*streamSub]struct{} // by game id

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

type streamSub struct {
	clientID string
	ch       chan []byte
}

func NewBroadcaster(store *GameStore, channel Channel, heartbeat time.Duration) *Broadcaster {
	return &Broadcaster{
		store:     store,
		channel:   channel,
		heartbeat: heartbeat,
		subs:      make(map[string]map[*streamSub]struct{}),
		stopCh:    make(chan struct{}),
	}
}

// Start opens the channel subscription and the heartbeat ticker. Call
// once per process; Stop tears both down.
func (b *Broadcaster) Start(ctx context.Context) error {
	inbound, cancel, err := b.channel.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to event channel: %w", err)
	}

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		for payload := range inbound {
			var env Envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				log.Printf("Dropping malformed envelope: %v", err)
				continue
			}
			b.deliver(env, payload)
		}
	}()
	go func() {
		defer b.wg.Done()
		defer cancel()
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-b.stopCh:
				return
			case <-ticker.C:
				// Unaddressed and payload-less; duplication is harmless.
				b.send(Envelope{Event: Event{Type: EventHeartbeat}})
			}
		}
	}()
	return nil
}

func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

// Publish sends the current document to every participant, each under
// its own role-filtered view. Failures are logged and never propagate:
// persisted state and notification are decoupled, and the catch-up
// event on reconnect compensates for missed broadcasts.
func (b *Broadcaster) Publish(ctx context.Context, doc *models.GameDocument) {
	b.send(Envelope{
		GameID:    doc.ID,
		Recipient: doc.Host.ID,
		Event:     Event{Type: EventState, Game: HostView(doc)},
	})
	for _, p := range doc.Players {
		b.send(Envelope{
			GameID:    doc.ID,
			Recipient: p.ID,
			Event:     Event{Type: EventState, Game: PlayerView(doc, p.ID)},
		})
	}
}

func (b *Broadcaster) send(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Printf("Failed to encode envelope for game %s: %v", env.GameID, err)
		return
	}
	if err := b.channel.Publish(context.Background(), payload); err != nil {
		log.Printf("Failed to publish event for game %s: %v", env.GameID, err)
	}
}

// deliver re-emits an inbound channel message to the matching local
// streams: addressee match, or everyone for unaddressed envelopes.
func (b *Broadcaster) deliver(env Envelope, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if env.GameID == "" {
		for _, gameSubs := range b.subs {
			for sub := range gameSubs {
				sub.offer(payload)
			}
		}
		return
	}
	for sub := range b.subs[env.GameID] {
		if env.Recipient == "" || env.Recipient == sub.clientID {
			sub.offer(payload)
		}
	}
}

func (s *streamSub) offer(payload []byte) {
	select {
	case s.ch <- payload:
	default:
		// Slow consumer; it will re-sync from the catch-up event.
	}
}

// GetEventStream returns the live, ordered event stream for exactly one
// participant: a synthetic current-state event first, so a fresh
// connection is caught up immediately, then every subsequent event
// addressed to that participant or broadcast. The cancel func detaches
// the stream.
func (b *Broadcaster) GetEventStream(ctx context.Context, gameID, clientID string) (<-chan []byte, func(), error) {
	doc, err := b.store.Find(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.IsParticipant(clientID) {
		return nil, nil, fmt.Errorf("client %s in game %s: %w", clientID, gameID, ErrParticipantNotFound)
	}

	var view *GameView
	if doc.Host.ID == clientID {
		view = HostView(doc)
	} else {
		view = PlayerView(doc, clientID)
	}
	catchup, err := json.Marshal(Envelope{
		GameID:    gameID,
		Recipient: clientID,
		Event:     Event{Type: EventState, Game: view},
	})
	if err != nil {
		return nil, nil, err
	}

	sub := &streamSub{clientID: clientID, ch: make(chan []byte, 32)}
	sub.ch <- catchup

	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[*streamSub]struct{})
	}
	b.subs[gameID][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[gameID][sub]; ok {
			delete(b.subs[gameID], sub)
			if len(b.subs[gameID]) == 0 {
				delete(b.subs, gameID)
			}
			close(sub.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel, nil
}

// Subscribers returns how many local streams are attached for a game.
func (b *Broadcaster) Subscribers(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[gameID])
}
