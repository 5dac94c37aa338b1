package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"emberveil.gg/internal/protocol"
	"emberveil.gg/internal/sim/world"
)

// Server bridges websocket clients onto the world's channels: players
// join and submit orders, observers subscribe to a zone's snapshots.
// Both receive the per-tick snapshot stream; a slow connection drops
// frames rather than stalling the simulation.
type Server struct {
	world  *world.World
	loader CharacterLoader
	log    *log.Logger

	upgrader websocket.Upgrader
}

// CharacterLoader resolves a previously persisted character for a
// reconnecting (wallet, name) pair. found=false means a fresh character.
type CharacterLoader interface {
	LoadCharacter(wallet, name string) (protocol.CharacterState, bool, error)
}

func NewServer(w *world.World, loader CharacterLoader, logger *log.Logger) *Server {
	return &Server{
		world:  w,
		loader: loader,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if sess.entityID == "" {
				continue // observers have no order surface
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeOrder {
				continue
			}
			var ord protocol.OrderMsg
			if err := json.Unmarshal(msg, &ord); err != nil {
				continue
			}
			if ord.ProtocolVersion != protocol.Version {
				continue
			}
			s.world.Inbox() <- world.OrderEnvelope{EntityID: sess.entityID, Msg: ord}
		}

		if sess.entityID != "" {
			s.world.Leave() <- sess.entityID
		} else {
			s.world.Watch() <- world.WatchRequest{ZoneID: sess.zoneID, Out: sess.out, Remove: true}
		}
	}
}

type session struct {
	entityID world.EntityID // empty for observers
	zoneID   string
	out      chan []byte
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out := make(chan []byte, maxQ)

	if hello.ObserveOnly {
		zoneID := strings.TrimSpace(hello.Zone)
		resp := make(chan error, 1)
		s.world.Watch() <- world.WatchRequest{ZoneID: zoneID, Out: out, Resp: resp}
		if err := <-resp; err != nil {
			s.writeError(conn, "E_ZONE", err.Error())
			return nil
		}
		return &session{zoneID: zoneID, out: out}
	}

	name := strings.TrimSpace(hello.Name)
	wallet := strings.TrimSpace(hello.Wallet)

	var restore *protocol.CharacterState
	if s.loader != nil && wallet != "" && name != "" {
		st, found, err := s.loader.LoadCharacter(wallet, name)
		switch {
		case err != nil:
			if s.log != nil {
				s.log.Printf("ws: load character %s/%s: %v", wallet, name, err)
			}
		case found:
			restore = &st
		}
	}

	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{
		Name:    name,
		Wallet:  wallet,
		Class:   strings.TrimSpace(hello.Class),
		ZoneID:  strings.TrimSpace(hello.Zone),
		Restore: restore,
		Out:     out,
		Resp:    respCh,
	}
	resp := <-respCh
	if resp.Err != "" {
		s.writeError(conn, "E_JOIN", resp.Err)
		return nil
	}

	b, err := json.Marshal(resp.Welcome)
	if err != nil {
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return nil
	}
	return &session{entityID: resp.EntityID, out: out}
}

func (s *Server) writeError(conn *websocket.Conn, code, msg string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         msg,
	})
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}
