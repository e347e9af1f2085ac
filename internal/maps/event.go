package maps

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Trigger says which input fires an event.
type Trigger string

const (
	TriggerEnter    Trigger = "enter"
	TriggerInteract Trigger = "interact"
	TriggerDblClick Trigger = "dblclick"
)

// EventKind discriminates the Event union.
type EventKind string

const (
	KindMessage EventKind = "message"
	KindDialog  EventKind = "dialog"
	KindDoor    EventKind = "door"
	KindServer  EventKind = "server"
	KindAction  EventKind = "action"
)

// serverAliases are legacy event types that are really server calls.
var serverAliases = map[string]bool{
	"pokecenter":   true,
	"pokemon_hunt": true,
	"battle":       true,
}

// EventAction is the kind-specific part of an event.
type EventAction interface {
	Kind() EventKind
}

// Message shows literal text.
type Message struct {
	Text string
}

// DialogRef shows a dialog by id, falling back to its own text.
type DialogRef struct {
	DialogID string
	Text     string
}

// Door moves the player, to another map or within the current one.
type Door struct {
	Target DoorTarget
}

// ServerCall hands the event to the external event service.
type ServerCall struct {
	EventType string
	Payload   map[string]any
}

// WorldAction fires a named action on the collaborator.
type WorldAction struct {
	Action string
	Data   map[string]any
}

func (Message) Kind() EventKind     { return KindMessage }
func (DialogRef) Kind() EventKind   { return KindDialog }
func (Door) Kind() EventKind        { return KindDoor }
func (ServerCall) Kind() EventKind  { return KindServer }
func (WorldAction) Kind() EventKind { return KindAction }

// DoorTarget is either an absolute spawn on MapID or, when Connection is set,
// a spawn on the named neighbour's border.
type DoorTarget struct {
	MapID      string      `json:"mapId,omitempty"`
	X          *int        `json:"x,omitempty"`
	Y          *int        `json:"y,omitempty"`
	Facing     Direction   `json:"facing,omitempty"`
	Connection *Connection `json:"connection,omitempty"`
}

// Connection describes which edge of a neighbouring map to arrive on.
type Connection struct {
	Direction Direction `json:"direction"`
	Offset    int       `json:"offset"`
}

// Lock gates door events.
type Lock struct {
	Locked  bool
	Flag    string
	Message string
}

// Event is one scripted map event.
type Event struct {
	ID      string
	Name    string
	Rect    Rect
	Trigger Trigger
	Once    bool
	Lock    Lock
	Action  EventAction
}

// Kind of the event's action.
func (e *Event) Kind() EventKind {
	if e.Action == nil {
		return KindMessage
	}
	return e.Action.Kind()
}

// rawEvent is the loose on-disk event shape.
type rawEvent struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name,omitempty"`
	Rect        *Rect           `json:"rect,omitempty"`
	Type        string          `json:"type,omitempty"`
	Text        string          `json:"text,omitempty"`
	DialogID    string          `json:"dialogId,omitempty"`
	Dialog      string          `json:"dialog,omitempty"`
	Trigger     *string         `json:"trigger,omitempty"`
	Target      *DoorTarget     `json:"target,omitempty"`
	Once        *bool           `json:"once,omitempty"`
	EventType   string          `json:"eventType,omitempty"`
	Payload     map[string]any  `json:"payload,omitempty"`
	Server      *rawServerBlock `json:"server,omitempty"`
	LockFlag    string          `json:"lockFlag,omitempty"`
	LockMessage string          `json:"lockMessage,omitempty"`
	Locked      bool            `json:"locked,omitempty"`
	Action      string          `json:"action,omitempty"`
	Data        map[string]any  `json:"data,omitempty"`
}

type rawServerBlock struct {
	Payload map[string]any `json:"payload"`
}

// EventList decodes a JSON event array and normalizes it.
type EventList []Event

func (l *EventList) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	*l = NormalizeEvents(raws)
	return nil
}

// NormalizeEvents converts raw events. Entries without a rect or that fail to
// decode are dropped; ids default to event-N by position; the legacy server
// aliases become server events; once defaults to true.
func NormalizeEvents(raws []json.RawMessage) []Event {
	out := make([]Event, 0, len(raws))
	for i, msg := range raws {
		var raw rawEvent
		if err := json.Unmarshal(msg, &raw); err != nil || raw.Rect == nil {
			continue
		}
		out = append(out, normalizeEvent(i, raw))
	}
	return out
}

func normalizeEvent(i int, raw rawEvent) Event {
	rawType := raw.Type
	if rawType == "" {
		rawType = string(KindMessage)
	}
	isServer := rawType == string(KindServer) || serverAliases[rawType]

	ev := Event{
		ID:   raw.ID,
		Name: raw.Name,
		Rect: *raw.Rect,
		Once: raw.Once == nil || *raw.Once,
		Lock: Lock{
			Locked:  raw.Locked,
			Flag:    strings.TrimSpace(raw.LockFlag),
			Message: raw.LockMessage,
		},
	}
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("event-%d", i)
	}

	switch {
	case raw.Trigger != nil:
		ev.Trigger = Trigger(*raw.Trigger)
	case rawType == string(KindDialog):
		ev.Trigger = TriggerEnter
	case isServer:
		ev.Trigger = TriggerInteract
	default:
		ev.Trigger = TriggerEnter
	}

	switch {
	case isServer:
		eventType := strings.TrimSpace(raw.EventType)
		if eventType == "" && serverAliases[rawType] {
			eventType = rawType
		}
		payload := raw.Payload
		if payload == nil && raw.Server != nil {
			payload = raw.Server.Payload
		}
		if payload == nil {
			payload = map[string]any{}
		}
		ev.Action = ServerCall{EventType: eventType, Payload: payload}
	case rawType == string(KindDoor):
		var target DoorTarget
		if raw.Target != nil {
			target = *raw.Target
		}
		ev.Action = Door{Target: target}
	case rawType == string(KindDialog):
		id := raw.DialogID
		if id == "" {
			id = raw.Dialog
		}
		ev.Action = DialogRef{DialogID: id, Text: raw.Text}
	case rawType == string(KindAction):
		ev.Action = WorldAction{Action: raw.Action, Data: raw.Data}
	case rawType == string(KindMessage):
		ev.Action = Message{Text: raw.Text}
	default:
		// unknown types are shown like dialogs when interacted with
		ev.Action = DialogRef{DialogID: firstNonEmpty(raw.DialogID, raw.Dialog), Text: raw.Text}
	}
	return ev
}

// MarshalJSON writes the normalized event back in the on-disk shape.
func (e Event) MarshalJSON() ([]byte, error) {
	rect := e.Rect
	once := e.Once
	trigger := string(e.Trigger)
	raw := rawEvent{
		ID:          e.ID,
		Name:        e.Name,
		Rect:        &rect,
		Type:        string(e.Kind()),
		Trigger:     &trigger,
		Once:        &once,
		LockFlag:    e.Lock.Flag,
		LockMessage: e.Lock.Message,
		Locked:      e.Lock.Locked,
	}
	switch a := e.Action.(type) {
	case Message:
		raw.Text = a.Text
	case DialogRef:
		raw.DialogID, raw.Text = a.DialogID, a.Text
	case Door:
		t := a.Target
		raw.Target = &t
	case ServerCall:
		raw.EventType, raw.Payload = a.EventType, a.Payload
	case WorldAction:
		raw.Action, raw.Data = a.Action, a.Data
	}
	return json.Marshal(raw)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
