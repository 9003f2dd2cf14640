package cache

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeCommand(t *testing.T) {
	encoded := encodeCommand([]string{"SET", "k", "v1"})
	require.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$2\r\nv1\r\n", string(encoded))
}

func TestReadReply(t *testing.T) {
	parse := func(raw string) (interface{}, error) {
		return readReply(bufio.NewReader(strings.NewReader(raw)))
	}

	reply, err := parse("+OK\r\n")
	require.NoError(t, err)
	require.Equal(t, "OK", reply)

	reply, err = parse(":42\r\n")
	require.NoError(t, err)
	require.EqualValues(t, 42, reply)

	reply, err = parse("$5\r\nhello\r\n")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), reply)

	reply, err = parse("$-1\r\n")
	require.NoError(t, err)
	require.Nil(t, reply)

	reply, err = parse("*2\r\n$1\r\na\r\n:7\r\n")
	require.NoError(t, err)
	require.Equal(t, []interface{}{[]byte("a"), int64(7)}, reply)

	_, err = parse("-ERR boom\r\n")
	require.EqualError(t, err, "ERR boom")

	_, err = parse("$5\r\nhelloXX")
	require.Error(t, err)
}

func TestNewRedisClientRequiresAddress(t *testing.T) {
	_, err := NewRedisClient(RedisConfig{})
	require.Error(t, err)
}
