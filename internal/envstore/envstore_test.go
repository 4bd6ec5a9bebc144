package envstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *[]byte) {
	var saved []byte
	s := New(map[string]string{"bootdelay": "1"}, 4096, func(blob []byte) error {
		saved = blob
		return nil
	})
	return s, &saved
}

func TestSetThenListContainsLine(t *testing.T) {
	s, _ := newTestStore()
	require.NoError(t, s.Set("ipaddr", "192.168.1.1"))
	require.Contains(t, s.List(), "ipaddr=192.168.1.1\n")
}

func TestUnsetRemovesLine(t *testing.T) {
	s, _ := newTestStore()
	require.NoError(t, s.Set("ipaddr", "192.168.1.1"))
	require.NoError(t, s.Unset("ipaddr"))
	require.NotContains(t, s.List(), "ipaddr=")
}

func TestSetThenUnsetRestoresOriginalList(t *testing.T) {
	s, _ := newTestStore()
	before := s.List()
	require.NoError(t, s.Set("tmp", "x"))
	require.NoError(t, s.Unset("tmp"))
	require.Equal(t, before, s.List())
}

func TestResetRestoresDefaults(t *testing.T) {
	s, _ := newTestStore()
	require.NoError(t, s.Set("extra", "v"))
	require.NoError(t, s.Reset())
	require.Equal(t, "bootdelay=1\n", s.List())
}

func TestSetRejectsBadName(t *testing.T) {
	s, _ := newTestStore()
	require.ErrorIs(t, s.Set("", "v"), ErrBadName)
}

func TestExportImportRoundTrips(t *testing.T) {
	s, saved := newTestStore()
	require.NoError(t, s.Set("ipaddr", "192.168.1.1"))
	require.NotNil(t, *saved)

	s2, _ := newTestStore()
	require.NoError(t, s2.Import(*saved))
	require.Equal(t, s.List(), s2.List())
}

func TestImportRejectsTooSmallBlob(t *testing.T) {
	s, _ := newTestStore()
	err := s.Import([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrRecordTooSmall)
}

func TestImportRejectsBadCRC(t *testing.T) {
	s, saved := newTestStore()
	require.NoError(t, s.Set("k", "v"))
	blob := append([]byte(nil), (*saved)...)
	blob[0] ^= 0xff // corrupt CRC

	s2, _ := newTestStore()
	err := s2.Import(blob)
	require.ErrorIs(t, err, ErrBadCRC)
}

func TestExportTextStandalone(t *testing.T) {
	s, saved := newTestStore()
	require.NoError(t, s.Set("a", "1"))

	text, err := ExportText(*saved, 4096)
	require.NoError(t, err)
	require.Contains(t, text, "a=1\n")
}
