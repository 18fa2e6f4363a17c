package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.bug.st/serial"

	"github.com/GermanAizek/modbus"
)

func main() {
	var err error
	var help bool
	var client *modbus.Client
	var target string
	var speed uint
	var dataBits uint
	var parity string
	var stopBits uint
	var timeout string
	var unitId uint
	var planFile string
	var runList []operation

	flag.StringVar(&target, "target", "rtu:///dev/ttyUSB0", "target device to connect to (e.g. tcp://somehost:502) [required]")
	flag.UintVar(&speed, "speed", 9600, "serial bus speed in bps (rtu/ascii)")
	flag.UintVar(&dataBits, "data-bits", 8, "number of bits per character on the serial bus (rtu/ascii)")
	flag.StringVar(&parity, "parity", "none", "parity bit <none|even|odd> on the serial bus (rtu/ascii)")
	flag.UintVar(&stopBits, "stop-bits", 1, "number of stop bits <1|2> on the serial bus (rtu/ascii)")
	flag.StringVar(&timeout, "timeout", "1s", "response timeout")
	flag.UintVar(&unitId, "unit-id", 1, "unit/slave id to use")
	flag.StringVar(&planFile, "plan", "", "path to a YAML plan file describing a recurring poll job")
	flag.BoolVar(&help, "help", false, "show a wall-of-text help message")
	flag.Parse()

	if help {
		displayHelp()
		os.Exit(0)
	}

	if planFile != "" {
		if err = runPlan(planFile); err != nil {
			fmt.Printf("failed to run plan '%s': %v\n", planFile, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if len(flag.Args()) == 0 {
		fmt.Printf("nothing to do.\n")
		os.Exit(0)
	}

	runList, err = parseOperations(flag.Args())
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(2)
	}

	var respTimeout time.Duration
	respTimeout, err = time.ParseDuration(timeout)
	if err != nil {
		fmt.Printf("failed to parse timeout setting '%s': %v\n", timeout, err)
		os.Exit(1)
	}

	var parityMode serial.Parity
	switch parity {
	case "none":
		parityMode = serial.NoParity
	case "odd":
		parityMode = serial.OddParity
	case "even":
		parityMode = serial.EvenParity
	default:
		fmt.Printf("unknown parity setting '%s' (should be one of none, odd or even)\n", parity)
		os.Exit(1)
	}

	var stopBitsMode serial.StopBits
	switch stopBits {
	case 1:
		stopBitsMode = serial.OneStopBit
	case 2:
		stopBitsMode = serial.TwoStopBits
	default:
		fmt.Printf("unknown stop bits setting '%v' (should be 1 or 2)\n", stopBits)
		os.Exit(1)
	}

	client, err = newClientFromTarget(target, modbus.SerialConfig{
		Speed:    int(speed),
		DataBits: int(dataBits),
		Parity:   parityMode,
		StopBits: stopBitsMode,
	}, modbus.WithTimeout(respTimeout))
	if err != nil {
		fmt.Printf("failed to create client: %v\n", err)
		os.Exit(1)
	}

	if unitId > 0xff {
		fmt.Printf("unit id '%v' out of range\n", unitId)
		os.Exit(1)
	}

	if err = client.Open(); err != nil {
		fmt.Printf("failed to open client: %v\n", err)
		os.Exit(2)
	}
	defer client.Close()

	runOperations(client, modbus.ServerAddress(unitId), runList)

	return
}

// newClientFromTarget dispatches on target's scheme, building the
// right transport-backed Client for each URL form.
func newClientFromTarget(target string, serialConf modbus.SerialConfig, opts ...modbus.Option) (client *modbus.Client, err error) {
	switch {
	case strings.HasPrefix(target, "rtu://"):
		serialConf.Device = strings.TrimPrefix(target, "rtu://")
		client = modbus.NewRTUClient(serialConf, opts...)

	case strings.HasPrefix(target, "ascii://"):
		serialConf.Device = strings.TrimPrefix(target, "ascii://")
		client = modbus.NewASCIIClient(serialConf, opts...)

	case strings.HasPrefix(target, "tcp://"):
		client = modbus.NewTCPClient(modbus.TCPConfig{Address: strings.TrimPrefix(target, "tcp://")}, opts...)

	default:
		err = errors.New("target should have a rtu://, ascii:// or tcp:// prefix")
	}

	return
}

const (
	opReadCoils uint = iota + 1
	opReadDiscreteInputs
	opReadHoldingRegisters
	opReadInputRegisters
	opWriteCoil
	opWriteRegister
	opSleep
)

type operation struct {
	op       uint
	addr     uint16
	quantity uint16
	coil     bool
	u16      uint16
	duration time.Duration
}

func parseOperations(args []string) (ops []operation, err error) {
	for _, arg := range args {
		var o operation
		var splitArgs = strings.Split(arg, ":")

		if len(splitArgs) < 2 {
			err = fmt.Errorf("illegal command format '%s' (expected command:arg1:arg2...)", arg)
			return
		}

		switch splitArgs[0] {
		case "rc", "readCoils":
			o.op = opReadCoils
			o.addr, o.quantity, err = parseAddressAndQuantity(splitArgs[1])

		case "rdi", "readDiscreteInputs":
			o.op = opReadDiscreteInputs
			o.addr, o.quantity, err = parseAddressAndQuantity(splitArgs[1])

		case "rh", "readHoldingRegisters":
			o.op = opReadHoldingRegisters
			o.addr, o.quantity, err = parseAddressAndQuantity(splitArgs[1])

		case "ri", "readInputRegisters":
			o.op = opReadInputRegisters
			o.addr, o.quantity, err = parseAddressAndQuantity(splitArgs[1])

		case "wc", "writeCoil":
			if len(splitArgs) != 3 {
				err = fmt.Errorf("writeCoil needs exactly 2 arguments, got %v", len(splitArgs)-1)
				return
			}
			o.op = opWriteCoil
			o.addr, err = parseUint16(splitArgs[1])
			if err == nil {
				o.coil, err = strconv.ParseBool(splitArgs[2])
			}

		case "wr", "writeRegister":
			if len(splitArgs) != 3 {
				err = fmt.Errorf("writeRegister needs exactly 2 arguments, got %v", len(splitArgs)-1)
				return
			}
			o.op = opWriteRegister
			o.addr, err = parseUint16(splitArgs[1])
			if err == nil {
				o.u16, err = parseUint16(splitArgs[2])
			}

		case "sleep":
			o.op = opSleep
			o.duration, err = time.ParseDuration(splitArgs[1])

		default:
			err = fmt.Errorf("unsupported command '%v'", splitArgs[0])
		}

		if err != nil {
			return
		}

		ops = append(ops, o)
	}

	return
}

func runOperations(client *modbus.Client, unitId modbus.ServerAddress, ops []operation) {
	for _, o := range ops {
		switch o.op {
		case opReadCoils, opReadDiscreteInputs:
			fc := modbus.FcReadCoils
			if o.op == opReadDiscreteInputs {
				fc = modbus.FcReadDiscreteInputs
			}

			access, err := client.ReadSingleBits(unitId, fc, modbus.Address(o.addr), modbus.Quantity(o.quantity)+1)
			if err != nil {
				fmt.Printf("failed to read: %v\n", err)
				continue
			}
			for i, v := range access.Values() {
				fmt.Printf("0x%04x : %v\n", o.addr+uint16(i), v == modbus.On)
			}

		case opReadHoldingRegisters, opReadInputRegisters:
			fc := modbus.FcReadHoldingRegisters
			if o.op == opReadInputRegisters {
				fc = modbus.FcReadInputRegisters
			}

			access, err := client.ReadRegisters(unitId, fc, modbus.Address(o.addr), modbus.Quantity(o.quantity)+1, modbus.BigEndian)
			if err != nil {
				fmt.Printf("failed to read: %v\n", err)
				continue
			}
			for i, v := range access.Values() {
				fmt.Printf("0x%04x : 0x%04x\t%v\n", o.addr+uint16(i), v.ToUint16(), v.ToUint16())
			}

		case opWriteCoil:
			value := modbus.Off
			if o.coil {
				value = modbus.On
			}
			if err := client.WriteSingleCoil(unitId, modbus.Address(o.addr), value); err != nil {
				fmt.Printf("failed to write coil: %v\n", err)
			} else {
				fmt.Printf("wrote %v at coil address 0x%04x\n", o.coil, o.addr)
			}

		case opWriteRegister:
			if err := client.WriteSingleRegister(unitId, modbus.Address(o.addr), o.u16, modbus.BigEndian); err != nil {
				fmt.Printf("failed to write register: %v\n", err)
			} else {
				fmt.Printf("wrote 0x%04x at register address 0x%04x\n", o.u16, o.addr)
			}

		case opSleep:
			time.Sleep(o.duration)
		}
	}

	return
}

func parseUint16(in string) (u16 uint16, err error) {
	var val uint64

	val, err = strconv.ParseUint(in, 0, 16)
	if err == nil {
		u16 = uint16(val)
	}

	return
}

func parseAddressAndQuantity(in string) (addr uint16, quantity uint16, err error) {
	split := strings.Split(in, "+")

	switch len(split) {
	case 1:
		addr, err = parseUint16(in)
	case 2:
		addr, err = parseUint16(split[0])
		if err == nil {
			quantity, err = parseUint16(split[1])
		}
	default:
		err = errors.New("illegal address format")
	}

	return
}

// plan describes a recurring poll job, loaded through viper so the
// same tool that accepts flag-driven one-shot commands can also be
// pointed at a durable YAML/TOML/JSON configuration file.
type plan struct {
	Target       string        `mapstructure:"target"`
	TransferMode string        `mapstructure:"transfer_mode"`
	UnitId       uint8         `mapstructure:"unit_id"`
	Interval     time.Duration `mapstructure:"interval"`
	Operations   []string      `mapstructure:"operations"`
}

func runPlan(path string) (err error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err = v.ReadInConfig(); err != nil {
		return
	}

	var p plan
	if err = v.Unmarshal(&p); err != nil {
		return
	}

	ops, err := parseOperations(p.Operations)
	if err != nil {
		return
	}

	var mode modbus.TransferMode
	switch p.TransferMode {
	case "ascii":
		mode = modbus.Ascii
	case "mbap", "tcp":
		mode = modbus.Mbap
	default:
		mode = modbus.Rtu
	}

	client, err := newClientFromTarget(p.Target, modbus.SerialConfig{Speed: 9600, DataBits: 8, StopBits: serial.OneStopBit}, modbus.WithTransferMode(mode))
	if err != nil {
		return
	}

	if err = client.Open(); err != nil {
		return
	}
	defer client.Close()

	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}

	for {
		runOperations(client, modbus.ServerAddress(p.UnitId), ops)
		time.Sleep(interval)
	}
}

func displayHelp() {
	fmt.Println(
		`
This tool is a modbus command line interface client meant to allow quick and
easy interaction with modbus devices (e.g. probing or troubleshooting).

Available options:`)
	flag.PrintDefaults()
	fmt.Printf(
		`

Command strings must be given as trailing arguments after any options.

Example: modbus-cli --target=tcp://somehost:502 --timeout=3s rh:0x100+5 wc:12:true
	 Read 6 holding registers at address 0x100 then set the coil at address 12 to true
	 on modbus/tcp device somehost port 502, with a timeout of 3s.

Available commands:
* <rc|readCoils>:<addr>[+additional quantity]
* <rdi|readDiscreteInputs>:<addr>[+additional quantity]
* <rh|readHoldingRegisters>:<addr>[+additional quantity]
* <ri|readInputRegisters>:<addr>[+additional quantity]
* <wc|writeCoil>:<addr>:<true|false>
* <wr|writeRegister>:<addr>:<value>
* sleep:<duration>

Alternatively, pass --plan=<path> to run a recurring poll job described in a
YAML (or TOML/JSON) file:

  target: tcp://somehost:502
  transfer_mode: mbap
  unit_id: 1
  interval: 5s
  operations:
    - rh:0x100+5
    - rc:0+10
`)

	return
}
