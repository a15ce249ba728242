// Package simulator is a simulated EasyComm III rotator. It speaks the
// protocol over one end of a net.Pipe.
package simulator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/w1xm/linktrack/easycomm/internal/status"
	"golang.org/x/sync/errgroup"
)

// Loosely inspired by https://github.com/rolandturner/ground-simulator/blob/master/Simulator.js

const (
	// Maximum acceleration in degrees/second^2
	maxAccel = 30
	// Maximum velocity in degrees/second
	maxVel = 30
	minVel = 0.1
	// Acceleration due to drag when not driving
	dragAccel = 30
	// Discrete simulation step size
	stepSize = 25 * time.Millisecond

	minElevation = 0
	maxElevation = 90
)

// Logf traces the simulated serial line. It is silent by default.
var Logf = func(string, ...interface{}) {}

type Simulator struct {
	conn   io.ReadWriteCloser
	mu     sync.Mutex
	status status.Status
	last   status.Status
}

// New returns a simulator parked at az, el and the client end of its line.
func New(az, el float64) (*Simulator, net.Conn) {
	a, b := net.Pipe()
	s := &Simulator{conn: a, status: status.Status{
		Version:        "sim",
		AzPos:          az,
		ElPos:          el,
		CommandAzFlags: "NONE",
		CommandElFlags: "NONE",
		Temperature:    21.5,
	}}
	s.updateRegisters()
	return s, b
}

// Position returns the true simulated position.
func (s *Simulator) Position() (az, el float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.AzPos, s.status.ElPos
}

var cmdRE = regexp.MustCompile(`^([\?A-Z]+)(.*)$`)

func (s *Simulator) parseInput(input string) error {
	parts := cmdRE.FindStringSubmatch(input)
	if parts == nil {
		return fmt.Errorf("unrecognized command %q", input)
	}
	cmd, parts := parts[1], strings.Split(parts[2], ",")
	if len(parts) == 1 && parts[0] == "" {
		parts = nil
	}
	switch cmd {
	case "SA":
		s.status.CommandAzFlags = "NONE"
		return nil
	case "SE":
		s.status.CommandElFlags = "NONE"
		return nil
	case "AZ":
		if len(parts) > 0 {
			s.status.CommandAzFlags = "POSITION"
			return status.ParseFloat(&s.status.CommandAzPos, parts[0])
		}
	case "EL":
		if len(parts) > 0 {
			s.status.CommandElFlags = "POSITION"
			return status.ParseFloat(&s.status.CommandElPos, parts[0])
		}
	case "IP", "CR":
		if len(parts) == 1 {
			return s.sendStatus(nil, cmd+parts[0]+",")
		}
	case "VU", "VD":
		if len(parts) > 0 {
			s.status.CommandElFlags = "VELOCITY"
			if err := status.ParseFloat(&s.status.CommandElVel, parts[0]); err != nil {
				return err
			}
			// Velocity commands are in mdeg/s
			s.status.CommandElVel /= 1000
			if cmd[1] == 'D' {
				s.status.CommandElVel = -s.status.CommandElVel
			}
		} else {
			dir := "U"
			if s.status.CommandElVel < 0 {
				dir = "D"
			}
			return s.send("V%s%3.2f", dir, math.Abs(s.status.CommandElVel))
		}
		return nil
	case "VL", "VR":
		if len(parts) > 0 {
			s.status.CommandAzFlags = "VELOCITY"
			if err := status.ParseFloat(&s.status.CommandAzVel, parts[0]); err != nil {
				return err
			}
			s.status.CommandAzVel /= 1000
			if cmd[1] == 'L' {
				s.status.CommandAzVel = -s.status.CommandAzVel
			}
		} else {
			dir := "R"
			if s.status.CommandAzVel < 0 {
				dir = "L"
			}
			return s.send("V%s%3.2f", dir, math.Abs(s.status.CommandAzVel))
		}
		return nil
	}
	if len(parts) == 0 {
		return s.sendStatus(nil, cmd)
	}
	return fmt.Errorf("unknown command %q %+v", cmd, parts)
}

func (s *Simulator) Run(ctx context.Context) error {
	defer s.conn.Close()
	t := time.NewTicker(stepSize)
	defer t.Stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer s.conn.Close()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
			if err := s.step(); err != nil {
				return err
			}
		}
	})
	g.Go(s.reader)
	return g.Wait()
}

func (s *Simulator) reader() error {
	scanner := bufio.NewScanner(s.conn)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		input := scanner.Text()
		Logf("srv->sim: %s", input)
		s.mu.Lock()
		err := s.parseInput(input)
		s.mu.Unlock()
		if err != nil {
			log.Printf("parsing %q: %v", input, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading port: %w", err)
	}
	return io.EOF
}

// posServo returns a target velocity for the given move
func posServo(s, t float64) float64 {
	move := math.Remainder(t-s, 360)
	delta := 2 * math.Abs(move)
	if delta > maxVel {
		delta = maxVel
	}
	if move < 0 {
		delta = -delta
	}
	return delta
}

// velServo returns an actual velocity for the given current and target velocity
func velServo(s, t float64) float64 {
	delta := math.Abs(t - s)
	if delta > maxAccel*stepSize.Seconds() {
		delta = maxAccel * stepSize.Seconds()
	}
	if t < s {
		delta = -delta
	}
	new := s + delta
	if math.Abs(new) < minVel {
		return 0
	}
	if new > maxVel {
		return maxVel
	} else if new < -maxVel {
		return -maxVel
	}
	return new
}

func drag(s float64) float64 {
	a := math.Abs(s)
	a -= dragAccel * stepSize.Seconds()
	if a < 0 {
		a = 0
	}
	if s < 0 {
		return -a
	}
	return a
}

// servo returns the next velocity of one axis.
func servo(flags string, pos, vel, cmdPos, cmdVel float64) float64 {
	switch flags {
	case "POSITION":
		return velServo(vel, posServo(pos, cmdPos))
	case "VELOCITY":
		return velServo(vel, cmdVel)
	}
	// Coasting
	return drag(vel)
}

func (s *Simulator) step() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if serr := s.sendStatus(&s.last, ""); serr != nil {
			log.Printf("sending status: %v", serr)
			if err == nil {
				err = serr
			}
		}
		s.last = s.status
	}()
	st := &s.status
	st.AzVel = servo(st.CommandAzFlags, st.AzPos, st.AzVel, st.CommandAzPos, st.CommandAzVel)
	st.ElVel = servo(st.CommandElFlags, st.ElPos, st.ElVel, st.CommandElPos, st.CommandElVel)

	st.AzPos = math.Mod(st.AzPos+st.AzVel*stepSize.Seconds()+360, 360)
	st.ElPos += st.ElVel * stepSize.Seconds()
	st.ElEndstops = 0
	if st.ElPos <= minElevation {
		st.ElPos = minElevation
		if st.ElVel < 0 {
			st.ElVel = 0
		}
		st.ElEndstops = 1
	} else if st.ElPos >= maxElevation {
		st.ElPos = maxElevation
		if st.ElVel > 0 {
			st.ElVel = 0
		}
		st.ElEndstops = 2
	}
	s.updateRegisters()
	return nil
}

// updateRegisters derives the reported flags from the simulated motion.
func (s *Simulator) updateRegisters() {
	st := &s.status
	st.ElevationLower = st.ElEndstops&1 != 0
	st.ElevationUpper = st.ElEndstops&2 != 0
	st.StatusRegister = status.FlagsToReg(st.CommandAzFlags, st.AzVel != 0) |
		status.FlagsToReg(st.CommandElFlags, st.ElVel != 0)<<8
	st.Moving = st.AzimuthMoving() || st.ElevationMoving()
	st.ErrorRegister = 1
	st.ErrorFlags = status.ErrorFlags{NoError: true}
}

func (s *Simulator) sendStatus(old *status.Status, cmd string) error {
	var oldv reflect.Value
	if old != nil {
		oldv = reflect.ValueOf(*old)
	}
	v := reflect.ValueOf(s.status)
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		tag := field.Tag.Get("report")
		if tag == "" || tag == "-" {
			continue
		}
		fv := v.Field(i)
		value := fv.Interface()
		if (cmd != "" && cmd != tag) || (cmd == "" && old != nil && reflect.DeepEqual(value, oldv.Field(i).Interface())) {
			continue
		}
		var err error
		switch fv.Kind() {
		case reflect.Float32, reflect.Float64:
			err = s.send("%s%3.2f", tag, value)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			err = s.send("%s%d", tag, value)
		case reflect.String:
			err = s.send("%s%s", tag, value)
		default:
			err = fmt.Errorf("don't know how to send %s: %q (value %+v)", field.Name, tag, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) send(cmd string, fields ...interface{}) error {
	if len(fields) > 0 {
		cmd = fmt.Sprintf(cmd, fields...)
	}
	Logf("sim->srv: %s", cmd)
	_, err := fmt.Fprintf(s.conn, "%s\n", cmd)
	return err
}
