package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/classmeet/internal/domain"
)

const (
	typeJoin         = "join"
	typeOffer        = "offer"
	typeAnswer       = "answer"
	typeICECandidate = "ice-candidate"
	typeChatMessage  = "chat-message"
	typeRaiseHand    = "raise-hand"
	typeMicState     = "mic-state"
	typeCamState     = "cam-state"
	typeEndMeeting   = "end-meeting"
	typeLeave        = "leave"
	typePing         = "ping"
)

var (
	errMissingType = errors.New("message without type")
	errBadPayload  = errors.New("payload does not match message type")
)

// wireUserID reads "42", 42, "" or null. Anything unparsable reads as 0.
type wireUserID domain.UserID

func (w *wireUserID) UnmarshalJSON(b []byte) error {
	var u domain.UserID
	if err := u.UnmarshalJSON(b); err != nil {
		*w = 0
		return nil
	}
	*w = wireUserID(u)
	return nil
}

// envelope is the common shape of every client message.
type envelope struct {
	Type        string          `json:"type"`
	MeetingCode string          `json:"meetingCode"`
	FromUserID  wireUserID      `json:"fromUserId"`
	ToUserID    wireUserID      `json:"toUserId"`
	Payload     json.RawMessage `json:"payload"`
	IsOn        *bool           `json:"isOn"`
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, err
	}
	if env.Type == "" {
		return envelope{}, errMissingType
	}
	return env, nil
}

func (e envelope) hasPayload() bool {
	p := bytes.TrimSpace(e.Payload)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}

type joinPayload struct {
	Token string `json:"token"`
}

func (e envelope) joinToken() string {
	if !e.hasPayload() {
		return ""
	}
	var p joinPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return ""
	}
	return p.Token
}

// isOn prefers the top-level flag and falls back to payload.isOn.
func (e envelope) isOn() bool {
	if e.IsOn != nil {
		return *e.IsOn
	}
	if !e.hasPayload() {
		return false
	}
	var p struct {
		IsOn bool `json:"isOn"`
	}
	_ = json.Unmarshal(e.Payload, &p)
	return p.IsOn
}

// validateHandshake checks that a relay payload is a session description of
// the matching kind, or an ICE candidate.
func (e envelope) validateHandshake() error {
	if !e.hasPayload() {
		return fmt.Errorf("%w: %s without payload", errBadPayload, e.Type)
	}
	switch e.Type {
	case typeOffer, typeAnswer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(e.Payload, &sd); err != nil {
			return fmt.Errorf("%w: %v", errBadPayload, err)
		}
		want := webrtc.SDPTypeOffer
		if e.Type == typeAnswer {
			want = webrtc.SDPTypeAnswer
		}
		if sd.Type != want {
			return fmt.Errorf("%w: %s carries %s", errBadPayload, e.Type, sd.Type)
		}
	case typeICECandidate:
		var ci webrtc.ICECandidateInit
		if err := json.Unmarshal(e.Payload, &ci); err != nil {
			return fmt.Errorf("%w: %v", errBadPayload, err)
		}
	}
	return nil
}
