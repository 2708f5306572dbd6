package canbus

import (
	"encoding/binary"
	"errors"
)

const (
	FrameSize     = 16 // struct can_frame
	MaxDataLength = 6  // 8 byte payload less the command word

	canEFFFlag = 0x80000000
	canRTRFlag = 0x40000000
	canERRFlag = 0x20000000
	canSFFMask = 0x000007ff
	canEFFMask = 0x1fffffff
)

// errors
var (
	ERR_DATA_TOO_LONG = errors.New("data length exceeds 6 bytes")
	ERR_SHORT_FRAME   = errors.New("frame too short to hold a command")
	ERR_NOT_DATA      = errors.New("frame is a remote or error frame")
)

type CANMsg struct {
	ID   uint32 // node ID this is being issued for
	Cmd  uint16 // command being issued in this message
	Data []byte // raw data up to six bytes. DLC is taken from len(Data) plus the command word.
}

// ToByteArray encodes the message as a raw SocketCAN frame.
// IDs that do not fit the standard 11 bit format are sent as extended frames.
func (msg *CANMsg) ToByteArray() (raw []byte, err error) {
	if len(msg.Data) > MaxDataLength {
		return nil, ERR_DATA_TOO_LONG
	}

	raw = make([]byte, FrameSize)

	oid := msg.ID
	if oid != oid&canSFFMask {
		oid = (oid & canEFFMask) | canEFFFlag
	}
	binary.LittleEndian.PutUint32(raw[0:4], oid)

	raw[4] = byte(len(msg.Data) + 2)
	binary.LittleEndian.PutUint16(raw[8:10], msg.Cmd)
	copy(raw[10:], msg.Data)

	return
}

func MsgFromByteArray(raw []byte) (msg CANMsg, err error) {
	if len(raw) < FrameSize {
		return msg, ERR_SHORT_FRAME
	}

	oid := binary.LittleEndian.Uint32(raw[0:4])
	if oid&(canRTRFlag|canERRFlag) != 0 {
		return msg, ERR_NOT_DATA
	}

	if oid&canEFFFlag != 0 {
		msg.ID = oid & canEFFMask
	} else {
		msg.ID = oid & canSFFMask
	}

	dlc := int(raw[4])
	if dlc < 2 || dlc > 8 {
		return msg, ERR_SHORT_FRAME
	}

	msg.Cmd = binary.LittleEndian.Uint16(raw[8:10])
	msg.Data = make([]byte, dlc-2)
	copy(msg.Data, raw[10:8+dlc])

	return
}
