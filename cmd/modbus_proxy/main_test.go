package main

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/goburrow/modbus"
	"github.com/google/go-cmp/cmp"
	"github.com/w1xm/linktrack/internal/modbus/modbushttp"
)

type fakeMeter struct {
	requests int
	err      error
}

func (m *fakeMeter) Send(aduRequest []byte) ([]byte, error) {
	m.requests++
	if m.err != nil {
		return nil, m.err
	}
	handler := modbus.NewRTUClientHandler("")
	handler.SlaveId = 1
	return handler.Encode(&modbus.ProtocolDataUnit{
		FunctionCode: modbus.FuncCodeReadInputRegisters,
		Data:         []byte{4, 0xfd, 0x76, 0x01, 0x2c},
	})
}

func TestProxy(t *testing.T) {
	meter := &fakeMeter{}
	s := &Server{transport: meter, password: "hunter2"}
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	client := modbus.NewClient(modbushttp.NewClient(ts.URL+"/api/send", "hunter2", 1))
	got, err := client.ReadInputRegisters(0, 2)
	if err != nil {
		t.Fatalf("ReadInputRegisters: %v", err)
	}
	if diff := cmp.Diff(got, []byte{0xfd, 0x76, 0x01, 0x2c}); diff != "" {
		t.Errorf("unexpected registers: got(-)/want(+):\n%s", diff)
	}

	meter.err = errors.New("timeout")
	if _, err := client.ReadInputRegisters(0, 2); err == nil || err.Error() != "timeout" {
		t.Errorf("line error not forwarded: %v", err)
	}

	bad := modbus.NewClient(modbushttp.NewClient(ts.URL+"/api/send", "guess", 1))
	if _, err := bad.ReadInputRegisters(0, 2); err == nil {
		t.Errorf("wrong password accepted")
	}
	if meter.requests != 2 {
		t.Errorf("meter saw %d requests, want 2", meter.requests)
	}
}
