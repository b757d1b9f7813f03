package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Send decoded events to network clients.
 *
 * Description:	Clients connect over TCP and receive one JSON object
 *		per line (NDJSON) for every event, e.g. to drive a
 *		layout panel or to log traffic.  Anything a client sends
 *		is ignored.  A client that can't keep up is dropped
 *		rather than holding up the decoder.
 *
 *		The service can be announced with DNS-SD so clients
 *		find it without typing addresses and ports.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/brutella/dnssd"
)

const DNSSDServiceType = "_dcc-events._tcp"

const clientWriteTimeout = 2 * time.Second

type EventServer struct {
	listener net.Listener

	mu      sync.Mutex
	clients map[net.Conn]struct{}

	wg sync.WaitGroup
}

// ListenEvents starts accepting clients on addr, e.g. ":4561".
func ListenEvents(addr string) (*EventServer, error) {
	var listener, err = net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	var s = &EventServer{listener: listener, clients: make(map[net.Conn]struct{})} //nolint:exhaustruct

	s.wg.Add(1)

	go s.acceptLoop()

	logger.Info("event server", "addr", listener.Addr())

	return s, nil
}

func (s *EventServer) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *EventServer) Port() int {
	if a, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return a.Port
	}

	return 0
}

func (s *EventServer) acceptLoop() {
	defer s.wg.Done()

	for {
		var conn, err = s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logger.Error("event server accept", "err", err)
			}

			return
		}

		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()

		logger.Info("event client connected", "remote", conn.RemoteAddr())
	}
}

func (s *EventServer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}

// Send writes e to every client.
func (s *EventServer) Send(e Event) error {
	var b, err = e.JSON()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout)) //nolint:errcheck

		if _, err := conn.Write(b); err != nil {
			logger.Info("event client dropped", "remote", conn.RemoteAddr(), "err", err)
			conn.Close() //nolint:errcheck
			delete(s.clients, conn)
		}
	}

	return nil
}

func (s *EventServer) Close() error {
	var err = s.listener.Close()

	s.wg.Wait()

	s.mu.Lock()
	for conn := range s.clients {
		conn.Close() //nolint:errcheck
		delete(s.clients, conn)
	}
	s.mu.Unlock()

	return err
}

/*------------------------------------------------------------------
 *
 * Name:	AnnounceEventServer
 *
 * Purpose:	Announce the event server with DNS-SD until ctx ends.
 *
 * Inputs:	name	- Service instance name.  Empty for "DCC monitor".
 *
 *		port	- TCP port of the event server.
 *
 *------------------------------------------------------------------*/

func AnnounceEventServer(ctx context.Context, name string, port int) error {
	if name == "" {
		name = "DCC monitor"
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNSSDServiceType,
		Port: port,
	}

	var sv, err = dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("DNS-SD service: %w", err)
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		return fmt.Errorf("DNS-SD responder: %w", rpErr)
	}

	if _, err := rp.Add(sv); err != nil {
		return fmt.Errorf("DNS-SD add service: %w", err)
	}

	logger.Info("DNS-SD announcing", "name", name, "type", DNSSDServiceType, "port", port)

	go func() {
		if err := rp.Respond(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("DNS-SD responder", "err", err)
		}
	}()

	return nil
}
