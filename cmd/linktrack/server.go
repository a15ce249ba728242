package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/w1xm/linktrack/rotator"
	"github.com/w1xm/linktrack/track"
)

type Server struct {
	// mu serializes access to the controller and the rotator.
	mu     sync.Mutex
	c      *track.Controller
	rot    rotator.Rotator
	offset rotator.Offsetter
	az     *rotator.Axis
	el     *rotator.Axis

	statusMu   sync.RWMutex
	statusCond *sync.Cond
	status     Status
}

// Status is published to API clients after every tick.
type Status struct {
	track.Status
	RotatorAzimuth   float64 `json:"rotator_azimuth"`
	RotatorElevation float64 `json:"rotator_elevation"`
	RotatorMoving    bool    `json:"rotator_moving"`
	// Error is the last tick error; it stays set once tracking stopped.
	Error string `json:"error,omitempty"`
}

func NewServer(rot *rotator.Offset, az, el *rotator.Axis) *Server {
	s := &Server{rot: rot, offset: rot, az: az, el: el}
	s.statusCond = sync.NewCond(s.statusMu.RLocker())
	return s
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Run ticks the controller every interval until ctx is done. An invariant
// violation stops the antenna and turns tracking off.
func (s *Server) Run(ctx context.Context, mode track.Mode, interval time.Duration) error {
	s.mu.Lock()
	err := s.c.SetMode(mode)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.c.SetMode(track.Off)
			s.mu.Unlock()
			return ctx.Err()
		case <-t.C:
		}
		s.mu.Lock()
		err := s.c.Tick()
		if err != nil {
			var violation *track.InvariantViolation
			if errors.As(err, &violation) {
				log.Printf("%v; stopping", violation)
			} else {
				log.Printf("tick: %v; stopping", err)
			}
			s.c.SetMode(track.Off)
		}
		status := s.c.Status()
		s.mu.Unlock()
		s.publish(status, err)
	}
}

func (s *Server) publish(status track.Status, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.Status = status
	if err != nil {
		s.status.Error = err.Error()
	}
	s.statusCond.Broadcast()
}

func (s *Server) rotatorCallback(status rotator.Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.RotatorAzimuth = status.AzimuthPosition()
	s.status.RotatorElevation = status.ElevationPosition()
	s.status.RotatorMoving = status.AzimuthMoving() || status.ElevationMoving()
}

func (s *Server) currentStatus() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	status := s.currentStatus()
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(status)
	if err != nil {
		log.Print(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

type Command struct {
	Command   string  `json:"command"`
	Mode      string  `json:"mode"`
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
}

// Reply answers a command that failed.
type Reply struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

func (s *Server) handleCommand(msg Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch msg.Command {
	case "set_mode":
		mode, err := track.ParseMode(msg.Mode)
		if err != nil {
			return err
		}
		return s.c.SetMode(mode)
	case "set_position":
		s.c.Manual(msg.Azimuth, msg.Elevation)
	case "set_offset":
		s.offset.SetAzimuthOffset(msg.Azimuth)
		s.offset.SetElevationOffset(msg.Elevation)
	case "stop":
		return s.c.SetMode(track.Off)
	default:
		return fmt.Errorf("unknown command %q", msg.Command)
	}
	return nil
}

func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	// Read and process incoming messages
	go func() {
		defer cancel()
		for {
			var msg Command
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if err := s.handleCommand(msg); err != nil {
				log.Printf("%v: %v", r.RemoteAddr, err)
				if err := send(Reply{Command: msg.Command, Error: err.Error()}); err != nil {
					return
				}
			}
		}
	}()

	if err := send(s.currentStatus()); err != nil {
		log.Print(err)
		return
	}
	for {
		s.statusMu.RLock()
		s.statusCond.Wait()
		status := s.status
		s.statusMu.RUnlock()
		if ctx.Err() != nil {
			return
		}
		if err := send(status); err != nil {
			log.Print(err)
			return
		}
	}
}
