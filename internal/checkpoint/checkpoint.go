// Package checkpoint persists per-account polling state: the sequence
// watermark an incremental scan resumes from, plus the set of message
// identifiers that have already been announced.
package checkpoint

import (
	"encoding/json"
	"sort"
)

// Checkpoint is the durable state of one account.
//
// An empty Watermark means the account has never completed a poll (or its
// stored state was lost) and the next poll must cold-start from a
// date-bounded search.
type Checkpoint struct {
	Watermark string
	Seen      map[string]struct{}
}

// HasSeen reports whether id has already been announced.
func (c Checkpoint) HasSeen(id string) bool {
	_, ok := c.Seen[id]
	return ok
}

// MarkSeen records id as announced.
func (c *Checkpoint) MarkSeen(id string) {
	if c.Seen == nil {
		c.Seen = make(map[string]struct{})
	}
	c.Seen[id] = struct{}{}
}

// Clone returns an independent copy, so a poll cycle can mutate its working
// state without touching the loaded snapshot.
func (c Checkpoint) Clone() Checkpoint {
	cp := Checkpoint{Watermark: c.Watermark}
	if c.Seen != nil {
		cp.Seen = make(map[string]struct{}, len(c.Seen))
		for id := range c.Seen {
			cp.Seen[id] = struct{}{}
		}
	}
	return cp
}

type checkpointJSON struct {
	Watermark string   `json:"watermark,omitempty"`
	Seen      []string `json:"seen"`
}

// MarshalJSON encodes the seen set as a sorted list for stable files.
func (c Checkpoint) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(c.Seen))
	for id := range c.Seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return json.Marshal(checkpointJSON{Watermark: c.Watermark, Seen: ids})
}

func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	var raw checkpointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Watermark = raw.Watermark
	c.Seen = make(map[string]struct{}, len(raw.Seen))
	for _, id := range raw.Seen {
		c.Seen[id] = struct{}{}
	}
	return nil
}
