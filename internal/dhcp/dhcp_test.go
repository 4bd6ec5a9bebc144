package dhcp

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discoverPacket(xid [4]byte, chaddr [16]byte) []byte {
	buf := make([]byte, fixedHeaderSize)
	buf[0] = opBootRequest
	copy(buf[4:8], xid[:])
	copy(buf[28:44], chaddr[:])

	var cookie [4]byte
	binary.BigEndian.PutUint32(cookie[:], magicCookie)
	buf = append(buf, cookie[:]...)
	buf = appendOption(buf, optMsgType, []byte{msgDiscover})
	buf = append(buf, optEnd)
	return buf
}

func TestParseDiscoverExtractsMessageType(t *testing.T) {
	xid := [4]byte{1, 2, 3, 4}
	chaddr := [16]byte{0xde, 0xad, 0xbe, 0xef}
	pkt := discoverPacket(xid, chaddr)

	msg, err := parse(pkt)
	require.NoError(t, err)
	require.Equal(t, byte(msgDiscover), msg.msgType)
	require.Equal(t, xid, msg.xid)
	require.Equal(t, chaddr, msg.chaddr)
}

func TestParseRejectsTooShortPacket(t *testing.T) {
	_, err := parse([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseRejectsBadMagicCookie(t *testing.T) {
	buf := make([]byte, fixedHeaderSize+4)
	buf[0] = opBootRequest
	_, err := parse(buf)
	require.ErrorIs(t, err, ErrMalformed)
}

func testResponder() *Responder {
	return &Responder{cfg: Config{
		ServerIP:   net.IPv4(192, 168, 1, 1),
		ClientIP:   net.IPv4(192, 168, 1, 2),
		SubnetMask: net.IPv4(255, 255, 255, 0),
		LeaseTime:  time.Hour,
	}}
}

func TestBuildReplyDiscoverProducesOffer(t *testing.T) {
	r := testResponder()
	xid := [4]byte{9, 9, 9, 9}
	msg, err := parse(discoverPacket(xid, [16]byte{}))
	require.NoError(t, err)

	reply := r.buildReply(msg)
	require.NotNil(t, reply)
	require.Equal(t, opBootReply, int(reply[0]))
	require.Equal(t, xid[:], reply[4:8])
	require.Equal(t, net.IPv4(192, 168, 1, 2).To4(), net.IP(reply[16:20]))

	require.Equal(t, byte(msgOffer), optionMsgType(t, reply))
}

// optionMsgType scans a reply packet's options for message type 53,
// bypassing parse's BOOTREQUEST op check (replies are BOOTREPLY).
func optionMsgType(t *testing.T, buf []byte) byte {
	t.Helper()
	opts := buf[fixedHeaderSize+4:]
	for i := 0; i < len(opts); {
		code := opts[i]
		if code == optEnd || code == optPad {
			i++
			continue
		}
		length := int(opts[i+1])
		if code == optMsgType {
			return opts[i+2]
		}
		i += 2 + length
	}
	t.Fatal("message type option not found")
	return 0
}

func TestBuildReplyIgnoresUnknownMessageType(t *testing.T) {
	r := testResponder()
	reply := r.buildReply(message{msgType: 7})
	require.Nil(t, reply)
}
