package main

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
)

// UpdateCallback is called after each socket command
type UpdateCallback func()

// SocketClient talks to a running socket server
type SocketClient struct {
	conn net.Conn
}

// NewSocketClient connects to a running socket server
func NewSocketClient(socketPath string) (*SocketClient, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket server at %s: %w", socketPath, err)
	}

	return &SocketClient{conn: conn}, nil
}

// Close closes the connection to the socket server
func (sc *SocketClient) Close() error {
	if sc.conn != nil {
		return sc.conn.Close()
	}
	return nil
}

// Execute sends a command and returns the decoded response
func (sc *SocketClient) Execute(cmdJSON string) (map[string]interface{}, error) {
	if err := writeFrame(sc.conn, []byte(cmdJSON)); err != nil {
		return nil, err
	}

	data, err := readFrame(sc.conn)
	if err != nil {
		return nil, err
	}

	var response map[string]interface{}
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return response, nil
}

// SocketServer exposes an Engine on a Unix domain socket. Commands from any
// number of clients are serialized through the engine's event loop.
type SocketServer struct {
	socketPath string
	engine     *Engine
	loop       *EventLoop
	log        *slog.Logger
	listener   net.Listener
	mu         sync.Mutex
	done       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once
	callbacks  []UpdateCallback
}

// NewSocketServer creates a new socket server instance
func NewSocketServer(socketPath string, engine *Engine, loop *EventLoop, log *slog.Logger) *SocketServer {
	if log == nil {
		log = discardLogger()
	}
	return &SocketServer{
		socketPath: socketPath,
		engine:     engine,
		loop:       loop,
		log:        log.With("component", "socket"),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// SetUpdateCallback adds a callback to be called after each socket command
func (ss *SocketServer) SetUpdateCallback(callback UpdateCallback) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.callbacks = append(ss.callbacks, callback)
}

// Start begins listening on the Unix domain socket
func (ss *SocketServer) Start() error {
	if err := os.Remove(ss.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", ss.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", ss.socketPath, err)
	}
	ss.listener = listener
	ss.log.Info("listening", "socket", ss.socketPath)

	go ss.acceptConnections()
	return nil
}

// acceptConnections accepts incoming connections (multiple clients supported)
func (ss *SocketServer) acceptConnections() {
	for {
		conn, err := ss.listener.Accept()
		if err != nil {
			select {
			case <-ss.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			ss.log.Warn("error accepting connection", "error", err)
			continue
		}

		go ss.handleClient(conn)
	}
}

// handleClient handles communication with a connected client
func (ss *SocketServer) handleClient(conn net.Conn) {
	defer conn.Close()

	for {
		data, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				ss.log.Warn("error reading from client", "error", err)
			}
			return
		}

		response := ss.loop.Call(func() string {
			return ss.engine.ExecuteCommand(string(data))
		})
		if response == "" {
			response = ss.engine.errorResponse("engine stopped")
		}

		if err := writeFrame(conn, []byte(response)); err != nil {
			ss.log.Warn("error writing to client", "error", err)
			return
		}

		ss.mu.Lock()
		callbacks := append([]UpdateCallback{}, ss.callbacks...)
		ss.mu.Unlock()
		for _, callback := range callbacks {
			callback()
		}
	}
}

// Stop shuts the server down and removes the socket file
func (ss *SocketServer) Stop() error {
	ss.stopOnce.Do(func() {
		close(ss.done)
		if ss.listener != nil {
			ss.listener.Close()
		}
		os.Remove(ss.socketPath)
		close(ss.stopped)
	})
	return nil
}

// Wait blocks until the server is fully shut down
func (ss *SocketServer) Wait() {
	<-ss.stopped
}

// ============================================================================
// Length-Prefixed Protocol Implementation
// ============================================================================

// maxFrameSize bounds a single message; whole pages travel in one frame
const maxFrameSize = 64 << 20

// readFrame reads one message: 4-byte big-endian length, then the payload
func readFrame(r io.Reader) ([]byte, error) {
	lengthBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBuf); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lengthBuf)
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	return data, nil
}

// writeFrame writes one length-prefixed message
func writeFrame(w io.Writer, data []byte) error {
	lengthBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lengthBuf, uint32(len(data)))

	if _, err := w.Write(lengthBuf); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return nil
}
