/*Package comm provides a line-oriented link to remote hardware over a serial
line or a TCP terminal server.

Most usages of this package will boil down to:
	1.  embed or hold a *RemoteDevice in a type that represents your hardware.
	2.  set TxTerminator and RxTerminator if the defaults (CRLF out, LF in)
		do not suit the device
	3.  Open the device, then write methods on top of SendRecv

A minimal example for an arm that answers "2" with "OK x y z":

	rd := comm.NewRemoteDevice("/dev/ttyS0", true, &serial.Config{Baud: 19200})
	if err := rd.Open(); err != nil {
		return err
	}
	defer rd.Close()
	resp, err := rd.SendRecv([]byte("2"))
*/
package comm

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	pkgerrors "github.com/pkg/errors"
	"github.com/tarm/serial"
)

const (
	// DefaultTimeout is the connect and I/O timeout used when none is given
	DefaultTimeout = 3 * time.Second
)

var (
	// ErrNotConnected is generated when .Conn is nil and Send or Recv is called.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")
)

// CreationFunc is a function which returns a new "connection" to something
// a closure should be used to encapsulate the variables and functions needed
type CreationFunc func() (io.ReadWriteCloser, error)

// SerialMaker returns a CreationFunc that opens the serial port described by conf
func SerialMaker(conf *serial.Config) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(conf)
	}
}

// TCPMaker returns a CreationFunc that dials addr with the given timeout
func TCPMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return TCPSetup(addr, timeout)
	}
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

// DefaultBackOff is the retry policy used by Open when RemoteDevice.Retry is nil
func DefaultBackOff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock}
}

type deadliner interface {
	SetDeadline(time.Time) error
}

/*RemoteDevice has an address and a connection made on demand by Open.

It is not concurrent-safe; the owner serializes access.
*/
type RemoteDevice struct {
	Addr     string
	IsSerial bool

	// Timeout bounds each SendRecv on connections which support deadlines
	Timeout time.Duration

	// TxTerminator is appended to every Send
	TxTerminator string

	// RxTerminator ends every line read by Recv
	RxTerminator byte

	// Retry is the policy for Open; nil uses DefaultBackOff
	Retry backoff.BackOff

	Conn   io.ReadWriteCloser
	maker  CreationFunc
	reader *bufio.Reader
}

// NewRemoteDevice creates a new RemoteDevice instance.  If isSerial is true,
// conf is used to open the port, with its Name defaulted to addr.
func NewRemoteDevice(addr string, isSerial bool, conf *serial.Config) *RemoteDevice {
	var maker CreationFunc
	if isSerial {
		if conf == nil {
			conf = &serial.Config{Baud: 9600}
		}
		if conf.Name == "" {
			conf.Name = addr
		}
		maker = SerialMaker(conf)
	} else {
		maker = TCPMaker(addr, DefaultTimeout)
	}
	rd := NewRemoteDeviceWithMaker(addr, maker)
	rd.IsSerial = isSerial
	return rd
}

// NewRemoteDeviceWithMaker creates a RemoteDevice which opens its connection
// with maker
func NewRemoteDeviceWithMaker(addr string, maker CreationFunc) *RemoteDevice {
	return &RemoteDevice{
		Addr:         addr,
		Timeout:      DefaultTimeout,
		TxTerminator: "\r\n",
		RxTerminator: '\n',
		maker:        maker}
}

// Open the connection, setting the Conn variable.  Opening an open device
// does nothing.
func (rd *RemoteDevice) Open() error {
	if rd.Conn != nil {
		return nil
	}
	// we use an exponential backoff, serial servers
	// do not like being connection thrashed.  A refused
	// connection will not get better by waiting.
	op := func() error {
		err := rd.open()
		if err != nil && strings.Contains(strings.ToLower(err.Error()), "refused") {
			return backoff.Permanent(err)
		}
		return err
	}
	b := rd.Retry
	if b == nil {
		b = DefaultBackOff()
	}
	if err := backoff.Retry(op, b); err != nil {
		return pkgerrors.Wrapf(err, "connecting to %s", rd.Addr)
	}
	return nil
}

func (rd *RemoteDevice) open() error {
	conn, err := rd.maker()
	if err != nil {
		return err
	}
	rd.Conn = conn
	rd.reader = bufio.NewReader(conn)
	return nil
}

// IsOpen returns true if the device holds a connection
func (rd *RemoteDevice) IsOpen() bool {
	return rd.Conn != nil
}

// Close the connection, nil-ing the Conn variable.  Closing a closed device
// does nothing.
func (rd *RemoteDevice) Close() error {
	if rd.Conn == nil {
		return nil
	}
	err := rd.Conn.Close()
	rd.Conn = nil
	rd.reader = nil
	return err
}

// Send writes data to the remote
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.Conn == nil {
		return ErrNotConnected
	}
	buf := make([]byte, 0, len(b)+len(rd.TxTerminator))
	buf = append(buf, b...)
	buf = append(buf, rd.TxTerminator...)
	_, err := rd.Conn.Write(buf)
	return err
}

// Recv recieves one non-blank line from the remote, with surrounding
// whitespace and the Rx terminator stripped
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	for {
		buf, err := rd.reader.ReadBytes(rd.RxTerminator)
		if err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(bytes.TrimSuffix(buf, []byte{rd.RxTerminator}))
		if len(line) > 0 {
			return line, nil
		}
	}
}

// SendRecv sends a buffer after appending the Tx terminator,
// then returns the response with the Rx terminator stripped
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	if d, ok := rd.Conn.(deadliner); ok && rd.Timeout > 0 {
		d.SetDeadline(time.Now().Add(rd.Timeout))
	}
	err := rd.Send(b)
	if err != nil {
		return nil, err
	}
	return rd.Recv()
}
