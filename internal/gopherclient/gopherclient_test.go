package gopherclient

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronrye/gopher-mcp-go/internal/urlcodec"
)

func echoServer(t *testing.T, handle func(net.Conn)) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func TestFetchReturnsBodyUntilEOF(t *testing.T) {
	host, port := echoServer(t, func(conn net.Conn) {
		buf := make([]byte, 256)
		conn.Read(buf)
		conn.Write([]byte("1About\t/about.txt\texample.org\t70\r\n.\r\n"))
	})

	u := &urlcodec.GopherURL{Host: host, Port: port, Type: "1", Selector: "/"}
	body, err := Fetch(context.Background(), host, port, u, 1024)
	require.NoError(t, err)
	assert.Contains(t, string(body), "About")
}

func TestFetchFailsWhenResponseExceedsCap(t *testing.T) {
	host, port := echoServer(t, func(conn net.Conn) {
		buf := make([]byte, 256)
		conn.Read(buf)
		conn.Write(make([]byte, 200))
	})

	u := &urlcodec.GopherURL{Host: host, Port: port, Type: "0", Selector: "/big.txt"}
	_, err := Fetch(context.Background(), host, port, u, 100)
	require.Error(t, err)
}

func TestFetchSendsSearchStringForType7(t *testing.T) {
	received := make(chan string, 1)
	host, port := echoServer(t, func(conn net.Conn) {
		buf := make([]byte, 256)
		n, _ := conn.Read(buf)
		received <- string(buf[:n])
		conn.Write([]byte("1Result\t/r\texample.org\t70\r\n.\r\n"))
	})

	u := &urlcodec.GopherURL{Host: host, Port: port, Type: "7", Selector: "/search", Search: "gopher", HasSearch: true}
	_, err := Fetch(context.Background(), host, port, u, 1024)
	require.NoError(t, err)
	assert.Equal(t, "/search\tgopher\r\n", <-received)
}

func TestDecodeTextStripsTerminatorAndPrefersUTF8(t *testing.T) {
	assert.Equal(t, "hello", DecodeText([]byte("hello\r\n.\r\n")))
	assert.Equal(t, "hello", DecodeText([]byte("hello")))
}

func TestIsText(t *testing.T) {
	assert.True(t, IsText("0"))
	assert.True(t, IsText("1"))
	assert.True(t, IsText("7"))
	assert.False(t, IsText("9"))
	assert.False(t, IsText("g"))
}
