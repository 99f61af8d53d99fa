package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// EncodeChat writes a Chat's frame: 1-byte length, text, 16 verification
// bytes, 16 hash bytes. Total size on the wire is 33+len(text).
func EncodeChat(c Chat) ([]byte, error) {
	if len(c.Text) > 255 {
		return nil, ErrTextTooLong
	}
	buf := make([]byte, 0, 33+len(c.Text))
	buf = append(buf, byte(len(c.Text)))
	buf = append(buf, c.Text...)
	buf = append(buf, c.VerificationCode[:]...)
	buf = append(buf, c.Hash[:]...)
	return buf, nil
}

// DecodeChat reads one Chat frame from r.
func DecodeChat(r io.Reader) (Chat, error) {
	var lenByte [1]byte
	if _, err := io.ReadFull(r, lenByte[:]); err != nil {
		return Chat{}, &ProtocolError{Op: "chat length", Err: shortRead(err)}
	}
	text := make([]byte, lenByte[0])
	if _, err := io.ReadFull(r, text); err != nil {
		return Chat{}, &ProtocolError{Op: "chat text", Err: shortRead(err)}
	}
	var vcode, hash [16]byte
	if _, err := io.ReadFull(r, vcode[:]); err != nil {
		return Chat{}, &ProtocolError{Op: "chat verification code", Err: shortRead(err)}
	}
	if _, err := io.ReadFull(r, hash[:]); err != nil {
		return Chat{}, &ProtocolError{Op: "chat hash", Err: shortRead(err)}
	}
	return Chat{Text: string(text), VerificationCode: vcode, Hash: hash}, nil
}

// Encode serializes a Message to its wire frame, total by value.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case PeerRequest:
		return []byte{TagPeerRequest}, nil
	case ArchiveRequest:
		return []byte{TagArchiveRequest}, nil
	case PeerList:
		octets := make([][4]byte, 0, len(v.IPs))
		for _, ip := range v.IPs {
			o, ok := ipv4Octets(ip)
			if !ok {
				// Skip malformed entries; count below reflects the filtered set.
				continue
			}
			octets = append(octets, o)
		}
		buf := new(bytes.Buffer)
		buf.WriteByte(TagPeerList)
		binary.Write(buf, binary.BigEndian, uint32(len(octets)))
		for _, o := range octets {
			buf.Write(o[:])
		}
		return buf.Bytes(), nil
	case ArchiveResponse:
		buf := new(bytes.Buffer)
		buf.WriteByte(TagArchiveResponse)
		binary.Write(buf, binary.BigEndian, uint32(len(v.History)))
		for _, chat := range v.History {
			chatBytes, err := EncodeChat(chat)
			if err != nil {
				return nil, err
			}
			buf.Write(chatBytes)
		}
		return buf.Bytes(), nil
	case NotificationMessage:
		if len(v.Text) > 255 {
			return nil, ErrTextTooLong
		}
		buf := new(bytes.Buffer)
		buf.WriteByte(TagNotificationMessage)
		buf.WriteByte(byte(len(v.Text)))
		buf.WriteString(v.Text)
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("wire: encode: unsupported message type %T", m)
	}
}

// Decode reads one framed Message from r, blocking until a full frame
// arrives or the read fails.
func Decode(r io.Reader) (Message, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, &ProtocolError{Op: "tag", Err: shortRead(err)}
	}
	switch tag[0] {
	case TagPeerRequest:
		return PeerRequest{}, nil
	case TagArchiveRequest:
		return ArchiveRequest{}, nil
	case TagPeerList:
		n, err := readUint32(r)
		if err != nil {
			return nil, &ProtocolError{Op: "peer list count", Err: shortRead(err)}
		}
		ips := make([]string, 0, n)
		for i := uint32(0); i < n; i++ {
			var octets [4]byte
			if _, err := io.ReadFull(r, octets[:]); err != nil {
				return nil, &ProtocolError{Op: "peer list entry", Err: shortRead(err)}
			}
			ips = append(ips, net.IPv4(octets[0], octets[1], octets[2], octets[3]).String())
		}
		return PeerList{IPs: ips}, nil
	case TagArchiveResponse:
		n, err := readUint32(r)
		if err != nil {
			return nil, &ProtocolError{Op: "archive response count", Err: shortRead(err)}
		}
		history := make([]Chat, 0, n)
		for i := uint32(0); i < n; i++ {
			chat, err := DecodeChat(r)
			if err != nil {
				return nil, err
			}
			history = append(history, chat)
		}
		return ArchiveResponse{History: history}, nil
	case TagNotificationMessage:
		var lenByte [1]byte
		if _, err := io.ReadFull(r, lenByte[:]); err != nil {
			return nil, &ProtocolError{Op: "notification length", Err: shortRead(err)}
		}
		text := make([]byte, lenByte[0])
		if _, err := io.ReadFull(r, text); err != nil {
			return nil, &ProtocolError{Op: "notification text", Err: shortRead(err)}
		}
		return NotificationMessage{Text: string(text)}, nil
	default:
		return nil, &ProtocolError{Op: "tag", Err: ErrUnknownTag}
	}
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func shortRead(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrShortRead
	}
	return err
}

// ipv4Octets parses a dotted-quad string into its four octets. Anything
// else, including IPv6, is rejected.
func ipv4Octets(s string) ([4]byte, bool) {
	ip := net.ParseIP(s)
	if ip == nil {
		return [4]byte{}, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return [4]byte{}, false
	}
	return [4]byte{v4[0], v4[1], v4[2], v4[3]}, true
}
