package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RedisConfig holds the connection parameters for the Redis-backed store.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

const (
	defaultRedisTimeout = 5 * time.Second
	redisKeyPrefix      = "gatewarden:"
)

// RedisClient speaks just enough RESP for the cache store: GET, SET with PX,
// DEL and INCR, plus AUTH and SELECT during the handshake. A single
// connection behind a mutex is plenty; commands are short and the resolution
// path is read-mostly.
type RedisClient struct {
	cfg RedisConfig

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewRedisClient dials the server immediately so a bad address or password
// fails at startup instead of on the first permission check.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	client := &RedisClient{cfg: cfg}

	client.mu.Lock()
	err := client.connectLocked(context.Background())
	client.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Close tears down the connection. The client is not usable afterwards.
func (c *RedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// Get reads a key. The second return reports whether the key existed.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	reply, err := c.exec(ctx, "GET", c.prefixed(key))
	if err != nil {
		return nil, false, err
	}
	switch v := reply.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return v, true, nil
	default:
		return nil, false, fmt.Errorf("redis: unexpected GET reply %T", v)
	}
}

// Set writes a key with a PX expiry. A non-positive ttl makes the key
// persistent.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{"SET", c.prefixed(key), string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	reply, err := c.exec(ctx, args...)
	if err != nil {
		return err
	}
	if status, ok := reply.(string); !ok || !strings.EqualFold(status, "OK") {
		return fmt.Errorf("redis: unexpected SET reply %v", reply)
	}
	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]string, 0, len(keys)+1)
	args = append(args, "DEL")
	for _, key := range keys {
		args = append(args, c.prefixed(key))
	}
	_, err := c.exec(ctx, args...)
	return err
}

// Increment bumps an integer key atomically, creating it at 1 when absent.
// Counters carry no expiry.
func (c *RedisClient) Increment(ctx context.Context, key string) (int64, error) {
	reply, err := c.exec(ctx, "INCR", c.prefixed(key))
	if err != nil {
		return 0, err
	}
	switch v := reply.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("redis: unexpected INCR reply %T", v)
	}
}

func (c *RedisClient) prefixed(key string) string {
	if strings.HasPrefix(key, redisKeyPrefix) {
		return key
	}
	return redisKeyPrefix + key
}

// exec sends one command and reads its reply. Any transport error drops the
// connection so the next call redials.
func (c *RedisClient) exec(ctx context.Context, args ...string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.conn.SetDeadline(commandDeadline(ctx, c.cfg.Timeout)); err != nil {
		c.dropLocked()
		return nil, err
	}

	if _, err := c.conn.Write(encodeCommand(args)); err != nil {
		c.dropLocked()
		return nil, err
	}

	reply, err := readReply(c.reader)
	if err != nil {
		c.dropLocked()
		return nil, err
	}
	return reply, nil
}

func (c *RedisClient) connectLocked(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var (
		conn net.Conn
		err  error
	)
	if c.cfg.TLS {
		dialer := &tls.Dialer{NetDialer: &net.Dialer{}}
		conn, err = dialer.DialContext(ctx, "tcp", c.cfg.Address)
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, "tcp", c.cfg.Address)
	}
	if err != nil {
		return err
	}

	reader := bufio.NewReader(conn)
	if err := conn.SetDeadline(commandDeadline(ctx, c.cfg.Timeout)); err != nil {
		conn.Close()
		return err
	}

	if err := c.handshake(conn, reader); err != nil {
		conn.Close()
		return err
	}

	// Per-command deadlines are set in exec; clear the handshake one.
	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.reader = reader
	return nil
}

// handshake authenticates and selects the configured database on a fresh
// connection.
func (c *RedisClient) handshake(conn net.Conn, reader *bufio.Reader) error {
	if c.cfg.Password != "" || c.cfg.Username != "" {
		auth := []string{"AUTH"}
		if c.cfg.Username != "" {
			auth = append(auth, c.cfg.Username, c.cfg.Password)
		} else {
			auth = append(auth, c.cfg.Password)
		}
		if err := roundTripOK(conn, reader, auth); err != nil {
			return fmt.Errorf("redis: AUTH failed: %w", err)
		}
	}

	if c.cfg.DB > 0 {
		if err := roundTripOK(conn, reader, []string{"SELECT", strconv.Itoa(c.cfg.DB)}); err != nil {
			return fmt.Errorf("redis: SELECT failed: %w", err)
		}
	}
	return nil
}

func (c *RedisClient) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

func roundTripOK(conn net.Conn, reader *bufio.Reader, args []string) error {
	if _, err := conn.Write(encodeCommand(args)); err != nil {
		return err
	}
	reply, err := readReply(reader)
	if err != nil {
		return err
	}
	if status, ok := reply.(string); !ok || !strings.EqualFold(status, "OK") {
		return fmt.Errorf("unexpected reply %v", reply)
	}
	return nil
}

func commandDeadline(ctx context.Context, fallback time.Duration) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(fallback)
}

// encodeCommand renders args as a RESP array of bulk strings.
func encodeCommand(args []string) []byte {
	size := 16
	for _, arg := range args {
		size += len(arg) + 16
	}

	buf := make([]byte, 0, size)
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, '\r', '\n')
	for _, arg := range args {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(arg)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, arg...)
		buf = append(buf, '\r', '\n')
	}
	return buf
}

// readReply parses one RESP reply: simple strings and integers come back as
// string/int64, bulk strings as []byte (nil bulk as untyped nil), arrays as
// []interface{}, and error replies as a Go error.
func readReply(r *bufio.Reader) (interface{}, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	line, err := readLine(r)
	if err != nil {
		return nil, err
	}

	switch prefix {
	case '+':
		return line, nil
	case '-':
		return nil, errors.New(line)
	case ':':
		return strconv.ParseInt(line, 10, 64)
	case '$':
		length, err := strconv.Atoi(line)
		if err != nil {
			return nil, err
		}
		if length < 0 {
			return nil, nil
		}
		buf := make([]byte, length+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		if buf[length] != '\r' || buf[length+1] != '\n' {
			return nil, errors.New("redis: bulk string missing CRLF terminator")
		}
		return buf[:length], nil
	case '*':
		count, err := strconv.Atoi(line)
		if err != nil {
			return nil, err
		}
		if count < 0 {
			return nil, nil
		}
		items := make([]interface{}, count)
		for i := range items {
			if items[i], err = readReply(r); err != nil {
				return nil, err
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("redis: unexpected reply prefix %q", prefix)
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}
