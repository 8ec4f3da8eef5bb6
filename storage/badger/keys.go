package badger

import (
	"encoding/binary"
	"math"

	"github.com/poiesic/attest/storage"
)

// Key prefixes for different data types
const (
	chunkPrefix    = "chunk"
	chunkSeq       = "chunkseq"
	tablePrefix    = "table"
	documentPrefix = "doc"
	sessionPrefix  = "sess"
)

func validateSessionID(sessionID string) error {
	if sessionID == "" || len(sessionID) > math.MaxUint16 {
		return storage.ErrInvalidSessionID
	}
	return nil
}

// appendSegment writes a length-prefixed string so that a session's keys
// never share a prefix with another session whose ID extends it.
func appendSegment(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

// makeScopeKey generates the prefix shared by all keys of one type in a session.
// Format: prefix:len(sessionID)sessionID
func makeScopeKey(prefix, sessionID string) []byte {
	buf := make([]byte, 0, len(prefix)+3+len(sessionID)+16)
	buf = append(buf, prefix...)
	buf = append(buf, ':')
	return appendSegment(buf, sessionID)
}

// makeChunkKey generates a key for a chunk by save sequence.
// Written in BigEndian order so iteration returns chunks in save order.
func makeChunkKey(sessionID string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(makeScopeKey(chunkPrefix, sessionID), seq)
}

// makeTableKey generates a key for a table by document and index.
// Format: table:session:len(docID)docID:index
func makeTableKey(sessionID, docID string, index int) []byte {
	key := appendSegment(makeScopeKey(tablePrefix, sessionID), docID)
	return binary.BigEndian.AppendUint32(key, uint32(index))
}

// makeDocumentKey generates a key for a document record.
func makeDocumentKey(sessionID, docID string) []byte {
	return appendSegment(makeScopeKey(documentPrefix, sessionID), docID)
}

// makeSessionKey generates the key of a session summary.
func makeSessionKey(sessionID string) []byte {
	return makeScopeKey(sessionPrefix, sessionID)
}

// sessionScopes returns every prefix holding data for a session.
func sessionScopes(sessionID string) [][]byte {
	return [][]byte{
		makeScopeKey(chunkPrefix, sessionID),
		makeScopeKey(tablePrefix, sessionID),
		makeScopeKey(documentPrefix, sessionID),
		makeSessionKey(sessionID),
	}
}
