package sysreboot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeRebooterRecordsCall(t *testing.T) {
	f := &Fake{}
	require.NoError(t, f.Reboot())
	require.True(t, f.Called)
}

func TestFakeRebooterPropagatesError(t *testing.T) {
	f := &Fake{Err: errors.New("boom")}
	require.Error(t, f.Reboot())
}
