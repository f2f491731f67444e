// Package queue implements the ordered play queue and its cursor.
//
// A Queue is pure in-memory state with no I/O. It is owned exclusively by the
// playback controller, which serializes access; the type itself is not safe for
// concurrent use.
package queue

// Entry wraps a track identifier with a queue-local sequence number. Sequence
// numbers are unique for the lifetime of a Queue and never reused.
type Entry struct {
	Seq     uint64
	TrackID string
}

// Queue is an ordered list of entries plus a cursor pointing at the current one.
type Queue struct {
	entries []Entry
	cursor  int // index into entries, -1 when no current entry
	nextSeq uint64
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{cursor: -1, nextSeq: 1}
}

// Append adds tracks to the end of the queue and returns their entries.
func (q *Queue) Append(trackIDs ...string) []Entry {
	added := make([]Entry, 0, len(trackIDs))
	for _, id := range trackIDs {
		entry := Entry{Seq: q.nextSeq, TrackID: id}
		q.nextSeq++
		q.entries = append(q.entries, entry)
		added = append(added, entry)
	}
	return added
}

// InsertNext places tracks immediately after the current entry, preserving their
// given order. Without a current entry they go to the front of the queue.
func (q *Queue) InsertNext(trackIDs ...string) []Entry {
	added := make([]Entry, 0, len(trackIDs))
	for _, id := range trackIDs {
		entry := Entry{Seq: q.nextSeq, TrackID: id}
		q.nextSeq++
		added = append(added, entry)
	}

	at := q.cursor + 1
	q.entries = append(q.entries[:at], append(added, q.entries[at:]...)...)
	return added
}

// Remove deletes the entry with the given sequence number. Removing an absent
// sequence number is a no-op. When the current entry is removed the cursor moves
// to the entry that follows it in order, or is cleared when none remains.
func (q *Queue) Remove(seq uint64) {
	idx := -1
	for i, entry := range q.entries {
		if entry.Seq == seq {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)

	switch {
	case q.cursor > idx:
		q.cursor--
	case q.cursor == idx && q.cursor >= len(q.entries):
		q.cursor = -1
	}
}

// Advance moves the cursor to the next entry and returns it, or nil when the
// queue is exhausted. With no current entry, Advance starts at the first one.
func (q *Queue) Advance() *Entry {
	if q.cursor+1 >= len(q.entries) {
		q.cursor = -1
		return nil
	}
	q.cursor++
	entry := q.entries[q.cursor]
	return &entry
}

// Current returns the entry under the cursor, or nil when there is none.
func (q *Queue) Current() *Entry {
	if q.cursor < 0 || q.cursor >= len(q.entries) {
		return nil
	}
	entry := q.entries[q.cursor]
	return &entry
}

// JumpTo moves the cursor to the entry with the given sequence number and
// returns it, or nil (cursor unchanged) when the sequence is absent.
func (q *Queue) JumpTo(seq uint64) *Entry {
	for i, entry := range q.entries {
		if entry.Seq == seq {
			q.cursor = i
			e := entry
			return &e
		}
	}
	return nil
}

// Clear empties the queue and clears the cursor.
func (q *Queue) Clear() {
	q.entries = nil
	q.cursor = -1
}

// Entries returns a copy of the queue contents in order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len returns the number of entries in the queue.
func (q *Queue) Len() int {
	return len(q.entries)
}
