// Package dhcp implements the minimal single-client DHCPv4 responder that
// runs alongside the recovery HTTP server so a browser on the recovery LAN
// gets an address with no manual configuration. It answers DISCOVER with
// OFFER and REQUEST with ACK, and is silent on everything else (including
// malformed packets) per spec.md §4.8.
package dhcp

import (
	"encoding/binary"
	"errors"
	"net"
	"time"
)

// Message types (DHCP option 53 values) this responder understands.
const (
	msgDiscover = 1
	msgOffer    = 2
	msgRequest  = 3
	msgAck      = 5
)

const (
	opBootRequest = 1
	opBootReply   = 2
	magicCookie   = 0x63825363

	optPad          = 0
	optSubnetMask   = 1
	optRouter       = 3
	optLeaseTime    = 51
	optMsgType      = 53
	optServerID     = 54
	optEnd          = 255
	fixedHeaderSize = 236 // everything before the magic cookie
)

// ErrMalformed is returned by parse for a packet that is too short, is not
// a BOOTREQUEST, or lacks the DHCP magic cookie; ServeOnce treats this as
// "ignore".
var ErrMalformed = errors.New("dhcp: malformed packet")

// Config describes the single lease this responder hands out.
type Config struct {
	Interface  string
	ServerIP   net.IP // also used as the DHCP server identifier and router
	ClientIP   net.IP // the one address ever offered
	SubnetMask net.IP
	LeaseTime  time.Duration
}

// Responder serves DHCPv4 on UDP 67/68 for one configured client lease.
type Responder struct {
	cfg  Config
	conn net.PacketConn
}

// New binds the responder's UDP socket but does not start serving.
func New(cfg Config) (*Responder, error) {
	conn, err := net.ListenPacket("udp4", ":67")
	if err != nil {
		return nil, err
	}
	return &Responder{cfg: cfg, conn: conn}, nil
}

// Stop closes the responder's socket. Safe to call once the Serve loop's
// context has been cancelled.
func (r *Responder) Stop() error {
	return r.conn.Close()
}

// ServeOnce reads and answers a single packet, if one is available before
// the deadline. It is designed to be called once per cooperative-loop tick
// (see internal/loop) rather than run in its own blocking goroutine loop,
// matching the single-threaded scheduling model in spec.md §5.
func (r *Responder) ServeOnce(deadline time.Time) error {
	if err := r.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	buf := make([]byte, 576)
	n, addr, err := r.conn.ReadFrom(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil
		}
		return err
	}

	msg, err := parse(buf[:n])
	if err != nil {
		return nil // silent on malformed packets, per spec
	}

	reply := r.buildReply(msg)
	if reply == nil {
		return nil // RELEASE/INFORM/unknown: ignored
	}
	_, err = r.conn.WriteTo(reply, &net.UDPAddr{IP: net.IPv4bcast, Port: 68})
	_ = addr
	return err
}

// message is the subset of a DHCPv4 packet this responder inspects.
type message struct {
	xid     [4]byte
	chaddr  [16]byte
	msgType byte
}

func parse(buf []byte) (message, error) {
	if len(buf) < fixedHeaderSize+4 {
		return message{}, ErrMalformed
	}
	if buf[0] != opBootRequest {
		return message{}, ErrMalformed
	}
	if binary.BigEndian.Uint32(buf[236:240]) != magicCookie {
		return message{}, ErrMalformed
	}

	var m message
	copy(m.xid[:], buf[4:8])
	copy(m.chaddr[:], buf[28:44])

	opts := buf[240:]
	for i := 0; i < len(opts); {
		code := opts[i]
		if code == optEnd || code == optPad {
			i++
			continue
		}
		if i+1 >= len(opts) {
			break
		}
		length := int(opts[i+1])
		if i+2+length > len(opts) {
			break
		}
		if code == optMsgType && length == 1 {
			m.msgType = opts[i+2]
		}
		i += 2 + length
	}
	return m, nil
}

// buildReply constructs the OFFER/ACK reply for a DISCOVER/REQUEST, or nil
// for message types this responder does not answer.
func (r *Responder) buildReply(in message) []byte {
	var replyType byte
	switch in.msgType {
	case msgDiscover:
		replyType = msgOffer
	case msgRequest:
		replyType = msgAck
	default:
		return nil
	}

	buf := make([]byte, fixedHeaderSize)
	buf[0] = opBootReply
	buf[1] = 1 // htype: ethernet
	buf[2] = 6 // hlen
	copy(buf[4:8], in.xid[:])
	copy(buf[16:20], r.cfg.ClientIP.To4())
	copy(buf[20:24], r.cfg.ServerIP.To4())
	copy(buf[28:44], in.chaddr[:])

	var cookie [4]byte
	binary.BigEndian.PutUint32(cookie[:], magicCookie)
	buf = append(buf, cookie[:]...)

	buf = appendOption(buf, optMsgType, []byte{replyType})
	buf = appendOption(buf, optServerID, r.cfg.ServerIP.To4())
	buf = appendOption(buf, optSubnetMask, r.cfg.SubnetMask.To4())
	buf = appendOption(buf, optRouter, r.cfg.ServerIP.To4())

	var lease [4]byte
	binary.BigEndian.PutUint32(lease[:], uint32(r.cfg.LeaseTime.Seconds()))
	buf = appendOption(buf, optLeaseTime, lease[:])

	buf = append(buf, optEnd)
	return buf
}

func appendOption(buf []byte, code byte, data []byte) []byte {
	buf = append(buf, code, byte(len(data)))
	return append(buf, data...)
}
