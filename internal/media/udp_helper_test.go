package media_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testUDPListener is a throwaway UDP socket standing in for a feeder
// destination, so router tests can assert on what actually hit the wire.
type testUDPListener struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

func mustListenUDP(t *testing.T) *testUDPListener {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testUDPListener{conn: conn, addr: conn.LocalAddr().(*net.UDPAddr)}
}

func (l *testUDPListener) readOne(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 2048)
	require.NoError(t, l.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := l.conn.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}
