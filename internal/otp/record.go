package otp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const recordVersionV1 = 1

// Channel identifies the delivery channel a code was issued for.
type Channel uint8

const (
	ChannelEmail Channel = 0
	ChannelSMS   Channel = 1
)

func (c Channel) String() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelSMS:
		return "sms"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

// ParseChannel maps the wire names used by HTTP layers onto Channel values.
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "email":
		return ChannelEmail, nil
	case "sms":
		return ChannelSMS, nil
	default:
		return 0, fmt.Errorf("unknown delivery channel %q", s)
	}
}

// Record is the at-rest form of an issued code. Only the SHA-256 digest of
// the code is stored. The binary layout is fixed-offset so the consume
// script can patch attempts and the consumed flag in place:
//
//	offset 1     version
//	offset 2     channel
//	offset 3-4   attempts (uint16 BE)
//	offset 5-6   max attempts (uint16 BE)
//	offset 7-14  created at (int64 BE, unix ms)
//	offset 15-22 expires at (int64 BE, unix ms)
//	offset 23    consumed flag
//	offset 24-55 SHA-256 code digest
//
// Offsets are 1-based to match Lua string indexing. Changing this layout
// requires bumping the version byte and updating both Lua scripts.
type Record struct {
	Channel     Channel
	Attempts    uint16
	MaxAttempts uint16
	CreatedAt   int64
	ExpiresAt   int64
	Consumed    bool
	CodeHash    [32]byte
}

// Active reports whether the code is still usable at the given instant.
func (r *Record) Active(now time.Time) bool {
	if r == nil || r.Consumed {
		return false
	}
	if now.UnixMilli() >= r.ExpiresAt {
		return false
	}
	return r.Attempts < r.MaxAttempts
}

func encodeRecord(record *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)
	buf.WriteByte(byte(record.Channel))

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.MaxAttempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	consumed := byte(0)
	if record.Consumed {
		consumed = 1
	}
	buf.WriteByte(consumed)
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersionV1 {
		return nil, errors.New("invalid otp record version")
	}

	channel, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &Record{
		Channel: Channel(channel),
	}

	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.MaxAttempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	consumed, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	record.Consumed = consumed != 0

	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
