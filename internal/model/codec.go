package model

import (
	"encoding/json"
	"fmt"
	"iter"
)

// Wire shapes of the stored document. Field names are the persisted format:
//
//	{ "_id"?, "_rev"?, "past": [Session...], "current": Session }
//	Session = { "sets": [Set...] }
//	Set     = { "hits": [Shot...] }
type stateDoc struct {
	ID      string       `json:"_id,omitempty"`
	Rev     string       `json:"_rev,omitempty"`
	Past    []sessionDoc `json:"past"`
	Current sessionDoc   `json:"current"`
}

type sessionDoc struct {
	Sets []setDoc `json:"sets"`
}

type setDoc struct {
	Hits []Shot `json:"hits"`
}

// EncodeState serializes the state, identity included, as a document body.
func EncodeState(st State) ([]byte, error) {
	doc := stateDoc{
		ID:      st.Identity.ID,
		Rev:     st.Identity.Rev,
		Past:    make([]sessionDoc, 0, len(st.Past)),
		Current: toSessionDoc(st.Current),
	}
	for _, sess := range st.Past {
		doc.Past = append(doc.Past, toSessionDoc(sess))
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState parses a document body. Missing identity fields decode to the
// zero Identity and a missing current session decodes to an empty one.
func DecodeState(data []byte) (State, error) {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	st := State{
		Identity: Identity{ID: doc.ID, Rev: doc.Rev},
		Current:  fromSessionDoc(doc.Current),
	}
	if len(doc.Past) > 0 {
		st.Past = make([]Session, 0, len(doc.Past))
		for _, sess := range doc.Past {
			st.Past = append(st.Past, fromSessionDoc(sess))
		}
	}
	return st, nil
}

// EncodeSession serializes a single session.
func EncodeSession(sess Session) (json.RawMessage, error) {
	data, err := json.Marshal(toSessionDoc(sess))
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// ExportSessions lazily serializes the current session followed by the past
// sessions in stored order.
func ExportSessions(st State) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		if !yield(EncodeSession(st.Current)) {
			return
		}
		for _, sess := range st.Past {
			if !yield(EncodeSession(sess)) {
				return
			}
		}
	}
}

func toSessionDoc(sess Session) sessionDoc {
	out := sessionDoc{Sets: make([]setDoc, 0, len(sess.Sets))}
	for _, set := range sess.Sets {
		hits := set.Shots
		if hits == nil {
			hits = []Shot{}
		}
		out.Sets = append(out.Sets, setDoc{Hits: hits})
	}
	return out
}

func fromSessionDoc(doc sessionDoc) Session {
	if len(doc.Sets) == 0 {
		return Session{}
	}
	sess := Session{Sets: make([]Set, 0, len(doc.Sets))}
	for _, set := range doc.Sets {
		sess.Sets = append(sess.Sets, Set{Shots: set.Hits})
	}
	return sess
}
