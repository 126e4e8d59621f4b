package leveldbadapter

import "encoding/binary"

// Key layout. Every per-session key carries the session id as a fixed
// 8-byte big-endian segment so prefix scans stay ordered.
var (
	settingsKey     = []byte("meta/settings")
	sessionSeqKey   = []byte("meta/session-seq")
	outboxSeqKey    = []byte("meta/outbox-seq")
	sessionPrefix   = []byte("s/")
	optionPrefix    = []byte("o/")
	commitPrefix    = []byte("c/")
	revealPrefix    = []byte("r/")
	delegatePrefix  = []byte("d/")
	powerPrefix     = []byte("p/")
	reputePrefix    = []byte("rep/")
	balancePrefix   = []byte("bal/")
	historyPrefix   = []byte("h/")
	outboxPrefix    = []byte("ob/")
	outboxPendingPx = []byte("obp/")
)

func be64(value uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return buf[:]
}

func join(parts ...[]byte) []byte {
	size := 0
	for _, part := range parts {
		size += len(part)
	}
	key := make([]byte, 0, size)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}

func sessionKey(sessionID uint64) []byte {
	return join(sessionPrefix, be64(sessionID))
}

func optionKey(sessionID uint64, optionID uint64) []byte {
	return join(optionPrefix, be64(sessionID), be64(optionID))
}

func sessionScoped(prefix []byte, sessionID uint64, voter string) []byte {
	return join(prefix, be64(sessionID), []byte(voter))
}

// historyKey leads with the voter so a voter's history is one prefix scan.
// The NUL separator keeps "ab" from matching the prefix of "abc".
func historyKey(voter string, sessionID uint64) []byte {
	return join(historyPrefix, []byte(voter), []byte{0}, be64(sessionID))
}

func historyVoterPrefix(voter string) []byte {
	return join(historyPrefix, []byte(voter), []byte{0})
}

func voterKey(prefix []byte, voter string) []byte {
	return join(prefix, []byte(voter))
}

func outboxKey(id string) []byte {
	return join(outboxPrefix, []byte(id))
}

func outboxPendingKey(seq uint64) []byte {
	return join(outboxPendingPx, be64(seq))
}
