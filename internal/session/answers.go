package session

import "sort"

// AnswerSet is an order-preserving map from question id to the raw answer
// value (a scalar, a single-field object, or a grouped {"values": {...}}
// object). Insertion order is retained because the submission payload is
// emitted in the order answers were first recorded.
type AnswerSet struct {
	order  []string
	values map[string]interface{}
}

func NewAnswerSet() *AnswerSet {
	return &AnswerSet{
		values: make(map[string]interface{}),
	}
}

// NewAnswerSetFromSnapshot rebuilds an answer set from a serialized snapshot.
// A plain map carries no insertion order, so entries are ordered by question
// id to keep restored payloads deterministic.
func NewAnswerSetFromSnapshot(values map[string]interface{}) *AnswerSet {
	set := NewAnswerSet()
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		set.Set(id, values[id])
	}
	return set
}

// Set records or replaces the answer for a question. A replaced answer keeps
// its original position in the emission order.
func (a *AnswerSet) Set(questionID string, value interface{}) {
	if _, exists := a.values[questionID]; !exists {
		a.order = append(a.order, questionID)
	}
	a.values[questionID] = value
}

// SetSub records one sub-answer of a grouped question, creating the
// {"values": {...}} wrapper on first use. An existing non-grouped value for
// the same question is replaced by the wrapper.
func (a *AnswerSet) SetSub(questionID, subKey string, value interface{}) {
	wrapper, ok := a.values[questionID].(map[string]interface{})
	if !ok {
		wrapper = map[string]interface{}{"values": map[string]interface{}{}}
	}
	inner, ok := wrapper["values"].(map[string]interface{})
	if !ok {
		inner = map[string]interface{}{}
		wrapper["values"] = inner
	}
	inner[subKey] = value
	a.Set(questionID, wrapper)
}

func (a *AnswerSet) Get(questionID string) (interface{}, bool) {
	v, ok := a.values[questionID]
	return v, ok
}

func (a *AnswerSet) Len() int {
	return len(a.order)
}

// Each visits answers in insertion order. The visited values must not be
// mutated by the callback.
func (a *AnswerSet) Each(fn func(questionID string, value interface{})) {
	for _, id := range a.order {
		fn(id, a.values[id])
	}
}

// Snapshot returns a shallow copy suitable for serialization.
func (a *AnswerSet) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(a.values))
	for id, v := range a.values {
		out[id] = v
	}
	return out
}
