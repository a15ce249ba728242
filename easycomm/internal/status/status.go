// Package status holds the EasyComm III rotator state shared by the client
// and the simulator. Fields tagged with report are the replies to the
// command named by the tag.
package status

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/w1xm/linktrack/rotator"
)

// ErrorFlags break down the GE register.
type ErrorFlags struct {
	NoError     bool
	SensorError bool
	HomingError bool
	MotorError  bool
}

type Status struct {
	// AZ command returns:
	AzPos float64 `report:"AZ"`
	// EL command returns:
	ElPos float64 `report:"EL"`

	// IP0 returns temperature
	Temperature float64 `report:"IP0,"`

	// IP1 returns Az endstops, bit 0 CCW, bit 1 CW
	AzEndstops            uint64 `report:"IP1,"`
	AzimuthCCW, AzimuthCW bool
	// IP2 returns El endstops, bit 0 lower, bit 1 upper
	ElEndstops                     uint64 `report:"IP2,"`
	ElevationLower, ElevationUpper bool

	// IP5 returns Az drive load
	RawAzDrive float64
	// IP6 returns El drive load
	RawElDrive float64
	// IP7 returns Az speed
	AzVel float64 `report:"IP7,"`
	// IP8 returns El speed
	ElVel float64 `report:"IP8,"`

	// CR10-13 return Az position setpoint, El position setpoint, Az velocity
	// setpoint, El velocity setpoint
	CommandAzPos float64 `report:"CR10,"`
	CommandElPos float64 `report:"CR11,"`
	CommandAzVel float64 `report:"CR12,"`
	CommandElVel float64 `report:"CR13,"`

	// GS command returns:
	StatusRegister uint64 `report:"GS"`
	// GE command returns
	ErrorRegister uint64 `report:"GE"`
	ErrorFlags    ErrorFlags

	// VE command returns:
	Version string `report:"VE"`

	Moving bool

	CommandAzFlags, CommandElFlags string
}

func (s Status) Clone() rotator.Status {
	return s
}

func (s Status) AzimuthPosition() float64 {
	return s.AzPos
}

func (s Status) ElevationPosition() float64 {
	return s.ElPos
}

// AzimuthMoving reports bit 1 of the azimuth byte of GS.
func (s Status) AzimuthMoving() bool {
	return s.StatusRegister&0x02 != 0
}

func (s Status) ElevationMoving() bool {
	return s.StatusRegister&0x0200 != 0
}

// RegToFlags names one byte of the GS register.
func RegToFlags(reg uint64) string {
	switch reg {
	case 1:
		return "NONE"
	case 2:
		return "VELOCITY"
	case 4, 6:
		return "POSITION"
	case 8:
		return "ERROR"
	}
	return fmt.Sprintf("UNKNOWN(%d)", reg)
}

// FlagsToReg is the inverse of RegToFlags for a moving axis.
func FlagsToReg(flags string, moving bool) uint64 {
	var reg uint64
	switch flags {
	case "VELOCITY":
		reg = 2
	case "POSITION":
		reg = 4
		if moving {
			reg |= 2
		}
	case "ERROR":
		reg = 8
	default:
		reg = 1
	}
	return reg
}

// Parse applies one rotator reply to s.
func (s *Status) Parse(input string) error {
	if len(input) < 2 {
		return errors.New("truncated output")
	}
	switch cmd, args := input[:2], input[2:]; cmd {
	case "AZ": // AZxxx.x
		return ParseFloat(&s.AzPos, args)
	case "EL": // ELxxx.x
		return ParseFloat(&s.ElPos, args)
	case "GS": // GSxxx
		i, err := strconv.ParseUint(args, 10, 64)
		if err != nil {
			return err
		}
		s.StatusRegister = i
		for i, dir := range []*string{&s.CommandAzFlags, &s.CommandElFlags} {
			*dir = RegToFlags(s.StatusRegister >> (i * 8) & 0xFF)
		}
		s.Moving = s.AzimuthMoving() || s.ElevationMoving()
	case "GE": // GExxx
		i, err := strconv.ParseUint(args, 10, 64)
		if err != nil {
			return err
		}
		s.ErrorRegister = i
		s.ErrorFlags = ErrorFlags{
			NoError:     i&1 != 0,
			SensorError: i&2 != 0,
			HomingError: i&4 != 0,
			MotorError:  i&8 != 0,
		}
	case "VE": // VEaaaaaa
		s.Version = args
	case "IP": // IPn,x,y... sets consecutive inputs starting at n
		return s.parseList(args, s.input)
	case "CR": // CRn,x,y... sets consecutive config registers starting at n
		return s.parseList(args, s.config)
	default:
		return errors.New("unknown rotator output")
	}
	return nil
}

func (s *Status) parseList(args string, set func(n int, value string) error) error {
	parts := strings.Split(args, ",")
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return err
	}
	if len(parts) < 2 {
		return errors.New("truncated list")
	}
	for i, value := range parts[1:] {
		if err := set(n+i, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Status) input(n int, value string) error {
	switch n {
	case 0:
		return ParseFloat(&s.Temperature, value)
	case 1, 2:
		bits, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		if n == 1 {
			s.AzEndstops = bits
			s.AzimuthCCW, s.AzimuthCW = bits&1 != 0, bits&2 != 0
		} else {
			s.ElEndstops = bits
			s.ElevationLower, s.ElevationUpper = bits&1 != 0, bits&2 != 0
		}
	case 5:
		return ParseFloat(&s.RawAzDrive, value)
	case 6:
		return ParseFloat(&s.RawElDrive, value)
	case 7:
		return ParseFloat(&s.AzVel, value)
	case 8:
		return ParseFloat(&s.ElVel, value)
	}
	return nil
}

func (s *Status) config(n int, value string) error {
	switch n {
	case 10:
		return ParseFloat(&s.CommandAzPos, value)
	case 11:
		return ParseFloat(&s.CommandElPos, value)
	case 12:
		return ParseFloat(&s.CommandAzVel, value)
	case 13:
		return ParseFloat(&s.CommandElVel, value)
	}
	return nil
}

func ParseFloat(dest *float64, input string) error {
	f, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return err
	}
	*dest = f
	return nil
}
