package find

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/0xADE/ade-find/parser"
)

// Result is one entry returned by search or debug-search
type Result struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Category string `json:"category"`
}

// Response is a decoded daemon response
type Response struct {
	Attrs map[string]string
	Body  []string // raw body lines
}

// Err returns the server error carried by the response, if any
func (r *Response) Err() error {
	if errType, ok := r.Attrs["error"]; ok {
		return fmt.Errorf("server error: %s: %s", errType, r.Attrs["desc"])
	}
	return nil
}

// Int returns the integer attribute key, zero when absent or malformed
func (r *Response) Int(key string) int {
	n, _ := strconv.Atoi(r.Attrs[key])
	return n
}

// Client handles a connection to the ade-find daemon
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewClient connects to the daemon socket from the environment
func NewClient() (*Client, error) {
	socketPath, err := SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get socket path: %w", err)
	}
	return Dial(socketPath)
}

// Dial connects to the daemon listening on socketPath
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", socketPath, err)
	}
	return NewClientConn(conn)
}

// NewClientConn wraps an established connection and sends the header
func NewClientConn(conn net.Conn) (*Client, error) {
	if _, err := conn.Write([]byte(parser.Header)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send header: %w", err)
	}
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Do sends cmdName with string args and reads the response
func (c *Client) Do(cmdName string, args ...string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var req strings.Builder
	for _, arg := range args {
		req.WriteString(parser.FormatString(arg))
		req.WriteByte('\n')
	}
	req.WriteString(cmdName)
	req.WriteByte('\n')

	if _, err := io.WriteString(c.conn, req.String()); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	resp, err := readResponse(c.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, nil
}

// Search returns the ranked results for query
func (c *Client) Search(query string) ([]Result, error) {
	return c.results(parser.CmdSearch, query)
}

// DebugSearch returns the substring matches for query
func (c *Client) DebugSearch(query string) ([]Result, error) {
	return c.results(parser.CmdDebugSearch, query)
}

// Summary returns the summary attributes of the installed snapshot
func (c *Client) Summary() (*Response, error) {
	resp, err := c.Do(parser.CmdSummary)
	if err != nil {
		return nil, err
	}
	return resp, resp.Err()
}

// Status returns the build status attributes
func (c *Client) Status() (*Response, error) {
	resp, err := c.Do(parser.CmdStatus)
	if err != nil {
		return nil, err
	}
	return resp, resp.Err()
}

// Reindex rebuilds the index, from roots when given, and returns the
// number of indexed entries. App roots are prefixed with "app:".
func (c *Client) Reindex(roots ...string) (int, error) {
	resp, err := c.Do(parser.CmdReindex, roots...)
	if err != nil {
		return 0, err
	}
	if err := resp.Err(); err != nil {
		return 0, err
	}
	return resp.Int("indexed"), nil
}

func (c *Client) results(cmdName, query string) ([]Result, error) {
	resp, err := c.Do(cmdName, query)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Body))
	for _, line := range resp.Body {
		var r Result
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

// readResponse reads one response: header, attribute lines, an optional
// "body:" section, and the terminating empty line
func readResponse(reader *bufio.Reader) (*Response, error) {
	header := make([]byte, len(parser.Header))
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("failed to read response header: %w", err)
	}
	if string(header) != parser.Header {
		return nil, fmt.Errorf("unexpected response header %q", header)
	}

	resp := &Response{Attrs: make(map[string]string)}
	inBody := false
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			return resp, nil
		}
		if inBody {
			resp.Body = append(resp.Body, line)
			continue
		}
		if line == "body:" {
			inBody = true
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if ok {
			resp.Attrs[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
}
