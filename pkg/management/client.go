package management

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	connectTimeout   = 1 * time.Second
	readWriteTimeout = 8 * time.Second
)

var ErrAuth = errors.New("mgmt: authentication failed")

type ManagementClient struct {
	socketPath string
	password   string
}

func NewManagementClient(socketPath, password string) *ManagementClient {
	return &ManagementClient{socketPath: socketPath, password: password}
}

// IsManagementServerStarted reports whether a server answers ping.
func (c *ManagementClient) IsManagementServerStarted() bool {
	res, err := c.SendCommand("ping")
	return err == nil && res == pongString
}

// SendCommand sends one request line and returns the response. An empty
// command is "help".
func (c *ManagementClient) SendCommand(command string) (string, error) {
	if command == "" {
		command = "help"
	}

	conn, err := net.DialTimeout("unix", c.socketPath, connectTimeout)
	if err != nil {
		return "", fmt.Errorf("mgmt: connect to %s: %w (is the daemon running?)", c.socketPath, err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(readWriteTimeout)); err != nil {
		return "", err
	}

	reader := bufio.NewReader(conn)
	if c.password != "" {
		if _, err := fmt.Fprintf(conn, "%s\n", c.password); err != nil {
			return "", fmt.Errorf("mgmt: send password: %w", err)
		}
		resp, err := recvMessage(reader)
		if err != nil {
			return "", fmt.Errorf("mgmt: read auth response: %w", err)
		}
		if resp != okAuthString {
			return "", ErrAuth
		}
	}

	if _, err := fmt.Fprintf(conn, "%s\n", command); err != nil {
		return "", fmt.Errorf("mgmt: send command: %w", err)
	}
	resp, err := recvMessage(reader)
	if err != nil {
		return "", fmt.Errorf("mgmt: read response: %w", err)
	}
	return strings.TrimSpace(resp), nil
}
