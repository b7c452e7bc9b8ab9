package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"

	"mcapServer/game"
)

// Layout (big endian):
//
//	version u8 | flags u8 | gameId [8] | seed u32 | score u32 | nextCoinIndex u32
//	leftTurns u32 | rightTurns u32 | issuedAt i64 | roundStartedAt i64
//	len u16 | leftId | len u16 | rightId
const (
	wireVersion   = 1
	flagGameOver  = 1 << 0
	fixedWireSize = 1 + 1 + 8 + 4*5 + 8*2
	maxIDLength   = 1<<16 - 1
)

var errShortPayload = errors.New("payload truncated")

func marshalSession(s game.Session) ([]byte, error) {
	if len(s.CurrentLeftID) > maxIDLength || len(s.CurrentRightID) > maxIDLength {
		return nil, fmt.Errorf("item id too long")
	}

	buf := make([]byte, 0, fixedWireSize+4+len(s.CurrentLeftID)+len(s.CurrentRightID))
	buf = append(buf, wireVersion)

	var flags byte
	if s.GameOver {
		flags |= flagGameOver
	}
	buf = append(buf, flags)
	buf = append(buf, s.GameID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, s.Seed)
	buf = binary.BigEndian.AppendUint32(buf, s.Score)
	buf = binary.BigEndian.AppendUint32(buf, s.NextCoinIndex)
	buf = binary.BigEndian.AppendUint32(buf, s.LeftTurns)
	buf = binary.BigEndian.AppendUint32(buf, s.RightTurns)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.IssuedAt))
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.RoundStartedAt))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s.CurrentLeftID)))
	buf = append(buf, s.CurrentLeftID...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s.CurrentRightID)))
	buf = append(buf, s.CurrentRightID...)
	return buf, nil
}

func unmarshalSession(b []byte) (game.Session, error) {
	var s game.Session
	if len(b) < fixedWireSize+4 {
		return s, errShortPayload
	}
	if b[0] != wireVersion {
		return s, fmt.Errorf("unknown payload version %d", b[0])
	}
	flags := b[1]
	if flags&^flagGameOver != 0 {
		return s, fmt.Errorf("unknown flags %#x", flags)
	}
	s.GameOver = flags&flagGameOver != 0
	copy(s.GameID[:], b[2:10])

	p := b[10:]
	s.Seed = binary.BigEndian.Uint32(p[0:])
	s.Score = binary.BigEndian.Uint32(p[4:])
	s.NextCoinIndex = binary.BigEndian.Uint32(p[8:])
	s.LeftTurns = binary.BigEndian.Uint32(p[12:])
	s.RightTurns = binary.BigEndian.Uint32(p[16:])
	s.IssuedAt = int64(binary.BigEndian.Uint64(p[20:]))
	s.RoundStartedAt = int64(binary.BigEndian.Uint64(p[28:]))
	p = p[36:]

	left, p, err := readString(p)
	if err != nil {
		return game.Session{}, err
	}
	right, p, err := readString(p)
	if err != nil {
		return game.Session{}, err
	}
	if len(p) != 0 {
		return game.Session{}, fmt.Errorf("%d trailing bytes", len(p))
	}
	s.CurrentLeftID = left
	s.CurrentRightID = right
	return s, nil
}

func readString(p []byte) (string, []byte, error) {
	if len(p) < 2 {
		return "", nil, errShortPayload
	}
	n := int(binary.BigEndian.Uint16(p))
	p = p[2:]
	if len(p) < n {
		return "", nil, errShortPayload
	}
	return string(p[:n]), p[n:], nil
}
