package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/w1xm/linktrack/track"
)

// ListenRotctld accepts hamlib rotctld connections on addr. Position and
// motion commands take the antenna out of tracking.
func (s *Server) ListenRotctld(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing rotctld socket")
		ln.Close()
	}()
	go func() {
		for ctx.Err() == nil {
			conn, err := ln.Accept()
			if err != nil {
				log.Printf("failed to accept: %v", err)
				continue
			}
			go s.handleRotctld(conn)
		}
	}()
	return nil
}

func (s *Server) handleRotctld(conn net.Conn) {
	defer conn.Close()
	log.Printf("accepted connection from %v", conn.RemoteAddr())
	s.serveRotctld(conn, conn.RemoteAddr().String())
}

func (s *Server) serveRotctld(conn io.ReadWriter, remote string) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		// Two forms of command: single character, or "+\" followed by command name.
		cmd := scanner.Text()
		var args []string
		var extended bool
		if len(cmd) == 0 {
			continue
		} else if len(cmd) > 2 && cmd[0:2] == `+\` {
			extended = true
			parts := strings.Split(cmd, " ")
			cmd = parts[0][2:]
			if len(parts) > 1 {
				args = parts[1:]
			}
			fmt.Fprintf(conn, "%s:\n", cmd)
		} else {
			// Space after command is optional.
			if len(cmd) > 1 {
				args = strings.Fields(strings.TrimLeft(cmd[1:], " "))
			}
			cmd = string(cmd[0])
		}
		log.Printf("%v command: %q args: %#v", remote, cmd, args)
		rprt := -1
		switch cmd {
		case "1", "dump_caps":
			azMin, azMax := s.az.Limits()
			elMin, elMax := s.el.Limits()
			fmt.Fprintf(conn, `Model name: linktrack
Mfg name: W1XM
Rot type: Az-El
Min Azimuth: %.2f
Max Azimuth: %.2f
Min Elevation: %.2f
Max Elevation: %.2f
Can set Position: Y
Can get Position: Y
Can Stop: Y
Can Park: N
Can Reset: N
Can Move: Y
Can get Info: Y
`, azMin, azMax, elMin, elMax)
			rprt = 0
		case "_", "get_info":
			s.mu.Lock()
			mode := s.c.Mode()
			s.mu.Unlock()
			fmt.Fprintf(conn, "linktrack %v\n", mode)
			rprt = 0
		case "S", "stop":
			extended = true // always print RPRT
			s.mu.Lock()
			s.c.SetMode(track.Off)
			s.mu.Unlock()
			rprt = 0
		case "P", "set_pos":
			extended = true // always print RPRT
			if len(args) != 2 {
				rprt = -22
				break
			}
			az, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				rprt = -22
				break
			}
			el, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				rprt = -22
				break
			}
			s.mu.Lock()
			s.c.Manual(az, el)
			s.mu.Unlock()
			rprt = 0
		case "M", "move":
			extended = true // always print RPRT
			if len(args) != 2 {
				rprt = -22
				break
			}
			dir, err := strconv.Atoi(args[0])
			if err != nil {
				rprt = -22
				break
			}
			// Speed is 0-100. We divide by 10 to get deg/sec.
			speed, err := strconv.Atoi(args[1])
			if err != nil {
				rprt = -22
				break
			}
			switch dir {
			case 4: // Down
				speed *= -1
				fallthrough
			case 2: // Up
				s.mu.Lock()
				s.c.SetMode(track.Off)
				s.rot.SetElevationVelocity(float64(speed) / 10)
				s.mu.Unlock()
				rprt = 0
			case 8: // Left
				speed *= -1
				fallthrough
			case 16: // Right
				s.mu.Lock()
				s.c.SetMode(track.Off)
				s.rot.SetAzimuthVelocity(float64(speed) / 10)
				s.mu.Unlock()
				rprt = 0
			default:
				rprt = -22
			}
		case "p", "get_pos":
			az, el := s.az.AngleNow(), s.el.AngleNow()
			if extended {
				fmt.Fprintf(conn, "Azimuth: %.6f\nElevation: %.6f\n", az, el)
			} else {
				fmt.Fprintf(conn, "%.6f\n%.6f\n", az, el)
			}
			rprt = 0
		}
		if extended || rprt != 0 {
			fmt.Fprintf(conn, "RPRT %d\n", rprt)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("reading from %v: %v", remote, err)
	}
}
