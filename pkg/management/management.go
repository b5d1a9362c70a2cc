// Package management is the control socket of long-running axine commands
// (watch, serve): a line based protocol over a Unix socket in the app dir.
//
// A request is one line, "command arg...". A response is any number of lines
// followed by a line holding a single "."; content lines starting with "." are
// sent with an extra leading dot.
package management

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"axine-go/pkg/appdir"
	"axine-go/pkg/log"

	"github.com/rs/zerolog"
)

const (
	endOfMessage  = "."
	pongString    = "OK: pong"
	nokAuthString = "ERR: authentication failed"
	okAuthString  = "OK: authenticated"

	authTimeout = 5 * time.Second
	idleTimeout = 30 * time.Second
)

// SocketPath is the socket of app ("watch", "serve") inside the app dir.
func SocketPath(app string) (string, error) {
	return appdir.Path(app + ".sock")
}

// CommandHandler receives the command arguments and returns the response text.
type CommandHandler func(args []string) (string, error)

type CommandInfo struct {
	Handler     CommandHandler
	Description string
}

// ManagementServer serves registered commands on a Unix socket.
type ManagementServer struct {
	socketPath string
	password   string
	listener   net.Listener
	handlers   map[string]CommandInfo
	mu         sync.RWMutex // protects handlers
	quit       chan struct{}
	wg         sync.WaitGroup
	startTime  time.Time
}

// NewManagementServer prepares a server on socketPath with the built-in
// status, ping, logs and help commands. An empty password disables auth.
func NewManagementServer(socketPath, password string) *ManagementServer {
	s := &ManagementServer{
		socketPath: socketPath,
		password:   password,
		handlers:   make(map[string]CommandInfo),
		startTime:  time.Now(),
	}
	s.RegisterHandler("status", "Show daemon status and uptime", s.handleStatusCommand)
	s.RegisterHandler("ping", "Check if the control socket is responsive", s.handlePingCommand)
	s.RegisterHandler("logs", "Last log entries. Usage: logs [count] [pretty]", s.handleLogsCommand)
	s.RegisterHandler("help", "Show help for commands. Usage: help [command]", s.handleHelpCommand)
	s.RegisterHandler("list", "Alias for 'help'", s.handleHelpCommand)
	return s
}

// RegisterHandler adds or replaces a command. Commands are case-insensitive.
func (s *ManagementServer) RegisterHandler(command, description string, handler CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	command = strings.ToLower(command)
	if _, exists := s.handlers[command]; exists {
		log.Warn().Str("command", command).Msg("mgmt: overwriting handler")
	}
	s.handlers[command] = CommandInfo{Handler: handler, Description: description}
}

// Start listens on the socket, replacing a stale socket file.
func (s *ManagementServer) Start() error {
	s.quit = make(chan struct{})

	if _, err := os.Stat(s.socketPath); err == nil {
		if c, err := net.DialTimeout("unix", s.socketPath, connectTimeout); err == nil {
			c.Close()
			return fmt.Errorf("mgmt: %s is in use by another process", s.socketPath)
		}
		if err := os.Remove(s.socketPath); err != nil {
			log.Warn().Err(err).Str("socket", s.socketPath).Msg("mgmt: failed to remove stale socket")
		}
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("mgmt: listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		log.Warn().Err(err).Msg("mgmt: could not set socket permissions")
	}
	log.Info().Str("socket", s.socketPath).Msg("mgmt: control socket listening")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener, waits for open connections and removes the socket.
func (s *ManagementServer) Stop() {
	if s.listener == nil {
		return
	}
	close(s.quit)
	s.listener.Close()
	s.wg.Wait()
	s.listener = nil

	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("socket", s.socketPath).Msg("mgmt: error removing socket file")
	}
	log.Debug().Msg("mgmt: server stopped")
}

func (s *ManagementServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			log.Warn().Err(err).Msg("mgmt: accept failed")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *ManagementServer) authenticate(conn net.Conn, r *bufio.Reader, w *bufio.Writer) bool {
	conn.SetReadDeadline(time.Now().Add(authTimeout))
	pass, err := r.ReadString('\n')
	conn.SetReadDeadline(time.Time{})
	pass = strings.TrimRight(pass, "\r\n")
	if err != nil || subtle.ConstantTimeCompare([]byte(pass), []byte(s.password)) != 1 {
		log.Warn().Msg("mgmt: authentication failed")
		writeMessage(w, nokAuthString)
		return false
	}
	return writeMessage(w, okAuthString) == nil
}

func (s *ManagementServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// unblock reads when the server stops
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.quit:
			conn.Close()
		case <-done:
		}
	}()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	if s.password != "" && !s.authenticate(conn, reader, writer) {
		return
	}

	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Debug().Err(err).Msg("mgmt: connection closed")
			}
			return
		}
		conn.SetReadDeadline(time.Time{})

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" {
			writeMessage(writer, "OK: Bye!")
			return
		}
		if err := writeMessage(writer, s.dispatch(line)); err != nil {
			log.Debug().Err(err).Msg("mgmt: write failed")
			return
		}
	}
}

// dispatch runs one request line and returns the response text.
func (s *ManagementServer) dispatch(line string) string {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	s.mu.RLock()
	info, ok := s.handlers[command]
	s.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("Error: Unknown command '%s'. Try 'help'.", command)
	}
	resp, err := info.Handler(parts[1:])
	if err != nil {
		log.Warn().Err(err).Str("command", command).Msg("mgmt: handler error")
		return fmt.Sprintf("Error: %s: %v", command, err)
	}
	return resp
}

func writeMessage(w *bufio.Writer, msg string) error {
	for _, l := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		if strings.HasPrefix(l, ".") {
			l = "." + l
		}
		if _, err := w.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	if _, err := w.WriteString(endOfMessage + "\n"); err != nil {
		return err
	}
	return w.Flush()
}

func recvMessage(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		l, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		l = strings.TrimRight(l, "\r\n")
		if l == endOfMessage {
			return strings.TrimSuffix(sb.String(), "\n"), nil
		}
		sb.WriteString(strings.TrimPrefix(l, "."))
		sb.WriteByte('\n')
	}
}

// --- Default Command Handlers ---

func (s *ManagementServer) handleStatusCommand(args []string) (string, error) {
	uptime := time.Since(s.startTime).Round(time.Second)
	return fmt.Sprintf("OK: Daemon running. PID: %d. Uptime: %s", os.Getpid(), uptime), nil
}

func (s *ManagementServer) handlePingCommand(args []string) (string, error) {
	return pongString, nil
}

func (s *ManagementServer) handleLogsCommand(args []string) (string, error) {
	count, pretty := 20, false
	for _, a := range args {
		if a == "pretty" {
			pretty = true
			continue
		}
		n, err := strconv.Atoi(a)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("invalid count %q", a)
		}
		count = n
	}

	entries, err := log.GetLastNLogs(count)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	var w io.Writer = &sb
	if pretty {
		w = zerolog.ConsoleWriter{Out: &sb, TimeFormat: time.RFC3339, NoColor: true}
	}
	for _, e := range entries {
		io.WriteString(w, e.LogData+"\n")
	}
	return sb.String(), nil
}

func (s *ManagementServer) handleHelpCommand(args []string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sb strings.Builder
	if len(args) > 0 {
		name := strings.ToLower(args[0])
		info, ok := s.handlers[name]
		if !ok {
			return fmt.Sprintf("Error: Unknown command '%s'. Try 'help' for a list.", name), nil
		}
		fmt.Fprintf(&sb, "OK: Help for '%s':\n  %s", name, info.Description)
		return sb.String(), nil
	}

	cmds := make([]string, 0, len(s.handlers))
	maxLen := 0
	for cmd := range s.handlers {
		cmds = append(cmds, cmd)
		maxLen = max(maxLen, len(cmd))
	}
	sort.Strings(cmds)

	sb.WriteString("OK: Available commands:\n")
	for _, cmd := range cmds {
		fmt.Fprintf(&sb, "  %-*s  %s\n", maxLen, cmd, s.handlers[cmd].Description)
	}
	sb.WriteString("\nUse 'help <command>' for more details on a specific command.")
	return sb.String(), nil
}
