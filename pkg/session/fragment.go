package session

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"sync"

	"github.com/openxbox/smartglass/pkg/packet"
)

// FragmentAssembler reassembles the two fragmentation schemes of the
// protocol: binary message fragments (is-fragment flag) and base64-chunked
// JSON datagrams. Completed entries are evicted immediately. Safe for
// concurrent use.
type FragmentAssembler struct {
	mu sync.Mutex

	// binary buffers keyed by sequence-begin, then by sequence number.
	binary map[uint32]map[uint32][]byte

	// json chunk lists keyed by datagram id.
	json map[int64][]jsonFragment
}

// NewFragmentAssembler creates an empty assembler.
func NewFragmentAssembler() *FragmentAssembler {
	return &FragmentAssembler{
		binary: make(map[uint32]map[uint32][]byte),
		json:   make(map[int64][]jsonFragment),
	}
}

// AddBinary buffers one binary fragment arriving under sequenceNum. When
// every sequence in [SequenceBegin, SequenceEnd) is present the chunks are
// concatenated in sequence order and returned; otherwise nil. Arrival
// order does not matter.
func (a *FragmentAssembler) AddBinary(sequenceNum uint32, frag *packet.Fragment) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	chunks, ok := a.binary[frag.SequenceBegin]
	if !ok {
		chunks = make(map[uint32][]byte)
		a.binary[frag.SequenceBegin] = chunks
	}
	chunks[sequenceNum] = frag.Data

	for seq := frag.SequenceBegin; seq < frag.SequenceEnd; seq++ {
		if _, ok := chunks[seq]; !ok {
			return nil
		}
	}

	var assembled []byte
	for seq := frag.SequenceBegin; seq < frag.SequenceEnd; seq++ {
		assembled = append(assembled, chunks[seq]...)
	}
	delete(a.binary, frag.SequenceBegin)
	return assembled
}

// jsonFragment is the schema of one fragmented JSON datagram chunk. The
// console encodes the numeric fields inconsistently (sometimes strings),
// so they are parsed as json.Number.
type jsonFragment struct {
	DatagramID     json.Number `json:"datagram_id"`
	DatagramSize   json.Number `json:"datagram_size"`
	FragmentOffset json.Number `json:"fragment_offset"`
	FragmentLength json.Number `json:"fragment_length"`
	FragmentData   string      `json:"fragment_data"`
}

// IsJSONFragment reports whether a JSON document is a datagram chunk
// rather than a complete message.
func IsJSONFragment(text string) bool {
	var probe struct {
		FragmentData *string `json:"fragment_data"`
	}
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return false
	}
	return probe.FragmentData != nil
}

// AddJSON buffers one JSON datagram chunk. When the accumulated fragment
// lengths reach the datagram size, the chunks are ordered by offset,
// concatenated, base64-decoded and returned as the complete document.
// Duplicate offsets are dropped.
func (a *FragmentAssembler) AddJSON(text string) (string, error) {
	var frag jsonFragment
	if err := json.Unmarshal([]byte(text), &frag); err != nil {
		return "", err
	}

	datagramID, err := frag.DatagramID.Int64()
	if err != nil {
		return "", err
	}
	datagramSize, err := frag.DatagramSize.Int64()
	if err != nil {
		return "", err
	}
	offset, err := frag.FragmentOffset.Int64()
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fragments := a.json[datagramID]
	for _, existing := range fragments {
		existingOffset, _ := existing.FragmentOffset.Int64()
		if existingOffset == offset {
			// Duplicate chunk; drop it.
			return "", nil
		}
	}
	fragments = append(fragments, frag)
	a.json[datagramID] = fragments

	var total int64
	for _, f := range fragments {
		length, err := f.FragmentLength.Int64()
		if err != nil {
			return "", err
		}
		total += length
	}
	if total != datagramSize {
		return "", nil
	}

	sort.Slice(fragments, func(i, j int) bool {
		oi, _ := fragments[i].FragmentOffset.Int64()
		oj, _ := fragments[j].FragmentOffset.Int64()
		return oi < oj
	})

	var encoded string
	for _, f := range fragments {
		encoded += f.FragmentData
	}
	delete(a.json, datagramID)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// Reset drops all partially assembled state.
func (a *FragmentAssembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.binary = make(map[uint32]map[uint32][]byte)
	a.json = make(map[int64][]jsonFragment)
}
