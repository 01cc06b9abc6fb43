package session

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// codecVersion is bumped whenever the wire layout changes. Decode rejects
// unknown versions instead of guessing.
const codecVersion = 1

// Layout, all lengths in bytes:
//
//	[0]            version
//	[1]            username length (n)
//	[2 : 2+n]      username
//	[2+n]          role length (m)
//	[3+n : 3+n+m]  role
//	[... : -8]     created-at, unix seconds, big endian
//	[-8 :]         last-activity, unix seconds, big endian
//
// Last-activity MUST stay at the trailing 8 bytes: the Touch Lua script
// reads and rewrites it by offset from the end of the blob.
const (
	headerLen    = 2
	timestampLen = 16
	maxFieldLen  = 255
)

var (
	ErrCorrupt            = errors.New("session: corrupt record")
	ErrUnsupportedVersion = errors.New("session: unsupported record version")
)

// Encode serializes s into the binary store format. The token is the
// storage key and is not part of the payload.
func Encode(s *Session) ([]byte, error) {
	if len(s.Username) == 0 || len(s.Username) > maxFieldLen {
		return nil, fmt.Errorf("%w: username length %d", ErrCorrupt, len(s.Username))
	}
	if len(s.Role) == 0 || len(s.Role) > maxFieldLen {
		return nil, fmt.Errorf("%w: role length %d", ErrCorrupt, len(s.Role))
	}

	buf := make([]byte, 0, headerLen+len(s.Username)+1+len(s.Role)+timestampLen)
	buf = append(buf, codecVersion, byte(len(s.Username)))
	buf = append(buf, s.Username...)
	buf = append(buf, byte(len(s.Role)))
	buf = append(buf, s.Role...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.CreatedAt))
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.LastActivity))
	return buf, nil
}

// Decode parses a stored blob. The caller supplies the token because it is
// the Redis key, not payload.
func Decode(token string, data []byte) (*Session, error) {
	if len(data) < headerLen+1+1+1+timestampLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	if data[0] != codecVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, data[0])
	}

	userLen := int(data[1])
	pos := headerLen
	if userLen == 0 || len(data) < pos+userLen+1+timestampLen {
		return nil, fmt.Errorf("%w: username overflows record", ErrCorrupt)
	}
	username := string(data[pos : pos+userLen])
	pos += userLen

	roleLen := int(data[pos])
	pos++
	if roleLen == 0 || len(data) != pos+roleLen+timestampLen {
		return nil, fmt.Errorf("%w: role overflows record", ErrCorrupt)
	}
	role := string(data[pos : pos+roleLen])
	pos += roleLen

	return &Session{
		Token:        token,
		Username:     username,
		Role:         role,
		CreatedAt:    int64(binary.BigEndian.Uint64(data[pos : pos+8])),
		LastActivity: int64(binary.BigEndian.Uint64(data[pos+8:])),
	}, nil
}
