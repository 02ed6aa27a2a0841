package ses

import (
	"encoding/binary"
	"testing"

	"github.com/prometheus/common/log"
	"github.com/stretchr/testify/require"
)

const testGeneration = 0x2a

// page assembles a diagnostic page with a generation code.
func page(code, byte1 byte, gen uint32, body ...[]byte) []byte {
	b := make([]byte, pageHeaderLen)
	b[0], b[1] = code, byte1
	binary.BigEndian.PutUint32(b[4:8], gen)
	for _, p := range body {
		b = append(b, p...)
	}
	binary.BigEndian.PutUint16(b[2:4], uint16(len(b)-4))
	return b
}

func encDescriptor(id, numTH byte, vendor, product, rev string) []byte {
	p := make([]byte, 4+encDescIdentityLen)
	p[0] = 0x11
	p[1] = id
	p[2] = numTH
	p[3] = encDescIdentityLen
	copy(p[4:12], []byte{0x50, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, id})
	copy(p[12:20], FixedString(vendor, 8))
	copy(p[20:36], FixedString(product, 16))
	copy(p[36:40], FixedString(rev, 4))
	return p
}

func edEntry(text string) []byte {
	p := make([]byte, 4, 4+len(text))
	binary.BigEndian.PutUint16(p[2:4], uint16(len(text)))
	return append(p, text...)
}

// sasSlotDescriptor is an EIP=1 SAS device slot descriptor with one phy.
func sasSlotDescriptor(eiioe, ei, dsn byte, sasAddr uint64) []byte {
	p := make([]byte, 4+4+28)
	p[0] = 0x10 | ProtoSAS
	p[1] = byte(len(p) - 2)
	p[2] = eiioe
	p[3] = ei
	p[4] = 1 // phys
	p[7] = dsn
	p[8] = 0x10 // end device
	binary.BigEndian.PutUint64(p[20:28], sasAddr)
	return p
}

// sasSlotDescriptorNoEIP is a SAS device slot descriptor without element
// index information. Its single phy starts at byte 4.
func sasSlotDescriptorNoEIP(sasAddr uint64) []byte {
	p := make([]byte, 4+28)
	p[0] = ProtoSAS
	p[1] = byte(len(p) - 2)
	p[2] = 1 // phys
	p[4] = 0x10 // end device
	binary.BigEndian.PutUint64(p[16:24], sasAddr)
	return p
}

// testPages is a primary subenclosure with two array device slots, a
// power supply and a temperature sensor:
//
//	row 0 [0,-1] array overall  row 4 [1,0] power supply
//	row 1 [0,0]  slot 0         row 5 [2,-1] temperature overall
//	row 2 [0,1]  slot 1         row 6 [2,0] temperature sensor
//	row 3 [1,-1] power overall
type testPages struct {
	cfg, es, ed, th, aes, nick []byte
}

func newTestPages() testPages {
	var tp testPages
	tp.cfg = page(PageConfiguration, 0, testGeneration,
		encDescriptor(0, 3, "ACME", "JBOD-2", "0100"),
		[]byte{ETArrayDevice, 2, 0, 8},
		[]byte{ETPowerSupply, 1, 0, 0},
		[]byte{ETTemperature, 1, 0, 0},
		[]byte("ArrayDev"))
	tp.es = page(PageEnclosureStatus, 0, testGeneration,
		[]byte{0, 0, 0, 0},
		[]byte{0x11, 0x80, 0x08, 0x40},
		[]byte{0x05, 0, 0, 0},
		[]byte{0, 0, 0, 0},
		[]byte{0x01, 0x00, 0x00, 0x20},
		[]byte{0, 0, 0, 0},
		[]byte{0x01, 0x00, 0x3c, 0x00})
	tp.ed = page(PageElementDescriptor, 0, testGeneration,
		edEntry(""), edEntry("Slot 00"), edEntry("Slot 01"),
		edEntry(""), edEntry("PSU A"),
		edEntry(""), edEntry("Temp 0"))
	tp.th = page(PageThreshold, 0, testGeneration,
		[]byte{0, 0, 0, 0},
		[]byte{0, 0, 0, 0},
		[]byte{0, 0, 0, 0},
		[]byte{0, 0, 0, 0},
		[]byte{0, 0, 0, 0},
		[]byte{0, 0, 0, 0},
		[]byte{0x55, 0x50, 0x0a, 0x05})
	tp.aes = page(PageAdditionalStatus, 0, testGeneration,
		sasSlotDescriptor(0, 0, 0, 0x5000c50000000001),
		sasSlotDescriptor(0, 1, 1, 0x5000c50000000002))
	nick := make([]byte, nicknameDescLen)
	copy(nick[6:8], "en")
	copy(nick[8:], "front")
	tp.nick = page(PageSubencNickname, 0, testGeneration, nick)
	return tp
}

func (tp testPages) all() [][]byte {
	return [][]byte{tp.cfg, tp.es, tp.ed, tp.th, tp.aes, tp.nick}
}

func (tp testPages) config(t *testing.T) *ConfigPage {
	cfg, err := ParseConfig(tp.cfg, testLogger())
	require.NoError(t, err)
	return cfg
}

func (tp testPages) join(t *testing.T, opts ...Option) *Join {
	o := defaultOptions()
	o.Logger = testLogger()
	for _, opt := range opts {
		opt(&o)
	}
	j, err := BuildJoin(tp.config(t), JoinPages{ES: tp.es, ED: tp.ed, TH: tp.th, AES: tp.aes}, &o)
	require.NoError(t, err)
	return j
}

func testLogger() log.Logger {
	return log.Base()
}

// newTestEngine returns an engine backed by an emulated enclosure holding
// pages.
func newTestEngine(pages [][]byte, opts ...Option) (*Engine, *Enclosure) {
	enc := NewEnclosure(pages...)
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	return NewEngine(CommandTransport{Handler: enc}, opts...), enc
}
