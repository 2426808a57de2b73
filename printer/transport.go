package printer

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
)

// Transport is a connection to one printer. A job is complete once Close
// returns without error.
type Transport interface {
	Write([]byte) (int, error)
	Read([]byte) (int, error)
	Close() error
}

type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// -------------------- RAW --------------------

// RawTransport passes bytes through unchanged (port 9100, USB, serial,
// device files).
type RawTransport struct {
	conn io.ReadWriteCloser
}

// NewRawTransport wraps conn.
func NewRawTransport(conn io.ReadWriteCloser) *RawTransport {
	return &RawTransport{conn: conn}
}

func (r *RawTransport) Write(b []byte) (int, error) { return r.conn.Write(b) }
func (r *RawTransport) Read(b []byte) (int, error)  { return r.conn.Read(b) }
func (r *RawTransport) Close() error                { return r.conn.Close() }

// SetWriteDeadline is forwarded when the connection supports deadlines.
func (r *RawTransport) SetWriteDeadline(t time.Time) error {
	if d, ok := r.conn.(deadliner); ok {
		return d.SetWriteDeadline(t)
	}
	return nil
}

// -------------------- LPD --------------------

// LPDTransport buffers the job and submits it as one RFC 1179 print job
// when closed.
type LPDTransport struct {
	conn   net.Conn
	queue  string
	logger *zap.Logger
	jobBuf bytes.Buffer
	closed bool
	mu     sync.Mutex
}

func NewLPDTransport(conn net.Conn, queue string, logger *zap.Logger) *LPDTransport {
	if queue == "" {
		queue = "lp"
	}
	return &LPDTransport{
		conn:   conn,
		queue:  queue,
		logger: logInternal.Or(logger).Named("lpd"),
	}
}

func (l *LPDTransport) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, io.ErrClosedPipe
	}
	return l.jobBuf.Write(data)
}

func (l *LPDTransport) Read(b []byte) (int, error) {
	return l.conn.Read(b)
}

func (l *LPDTransport) SetWriteDeadline(t time.Time) error {
	return l.conn.SetWriteDeadline(t)
}

func (l *LPDTransport) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	defer func() { l.closed = true }()

	if l.jobBuf.Len() == 0 {
		return l.conn.Close()
	}

	if err := l.flushJob(); err != nil {
		l.logger.Debug("submit job failed", zap.Error(err))
		_ = l.conn.Close()
		return err
	}
	return l.conn.Close()
}

func (l *LPDTransport) flushJob() error {
	host, _ := os.Hostname()
	if host == "" {
		host = "localhost"
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "qrlabel"
	}

	jobID := int(time.Now().UnixNano() % 1000000)
	hostShort := host
	if i := strings.IndexByte(hostShort, '.'); i > 0 {
		hostShort = hostShort[:i]
	}
	jobName := fmt.Sprintf("qrlabel-%d", jobID)
	cfName := fmt.Sprintf("cfA%03d%s", jobID%1000, hostShort)
	dfName := fmt.Sprintf("dfA%03d%s", jobID%1000, hostShort)

	// H host, P user, J job name, N source name, l data file printed raw
	control := fmt.Sprintf(
		"H%s\nP%s\nJ%s\nN%s\nl%s\nU%s\n",
		host, user, jobName, dfName, dfName, dfName,
	)

	if err := requestPrintJob(l.conn, l.queue); err != nil {
		return fmt.Errorf("LPD: stage 1 failed: %w", err)
	}
	if err := sendControlFile(l.conn, cfName, []byte(control)); err != nil {
		return fmt.Errorf("LPD: stage 2 failed: %w", err)
	}
	data := l.jobBuf.Bytes()
	if err := sendDataFile(l.conn, dfName, data); err != nil {
		return fmt.Errorf("LPD: stage 3 failed: %w", err)
	}

	l.logger.Debug("job submitted", zap.String("queue", l.queue), zap.Int("bytes", len(data)))
	l.jobBuf.Reset()
	return nil
}

// -------------------- LPD helpers --------------------

func requestPrintJob(conn net.Conn, queue string) error {
	// \x02 <queue> \n
	if err := writeAll(conn, []byte("\x02"+queue+"\n")); err != nil {
		return err
	}
	return readAck(conn, "stage 1")
}

func sendControlFile(conn net.Conn, cfName string, control []byte) error {
	// \x02 <size> SP <cfName> \n, then <control> \x00
	header := []byte("\x02" + strconv.Itoa(len(control)) + " " + cfName + "\n")
	if err := writeAll(conn, header); err != nil {
		return err
	}
	if err := readAck(conn, "stage 2 header"); err != nil {
		return err
	}
	if err := writeAll(conn, append(control, 0x00)); err != nil {
		return err
	}
	return readAck(conn, "stage 2")
}

func sendDataFile(conn net.Conn, dfName string, data []byte) error {
	// \x03 <size> SP <dfName> \n, then <data> \x00
	header := []byte("\x03" + strconv.Itoa(len(data)) + " " + dfName + "\n")
	if err := writeAll(conn, header); err != nil {
		return err
	}
	if err := readAck(conn, "stage 3 header"); err != nil {
		return err
	}
	if err := writeAll(conn, data); err != nil {
		return err
	}
	if err := writeAll(conn, []byte{0x00}); err != nil {
		return err
	}
	return readAck(conn, "stage 3")
}

const lpdAckTimeout = 5 * time.Second

func readAck(conn net.Conn, stage string) error {
	_ = conn.SetReadDeadline(time.Now().Add(lpdAckTimeout))
	defer conn.SetReadDeadline(time.Time{})

	ack := make([]byte, 1)
	n, err := conn.Read(ack)
	if err != nil {
		return fmt.Errorf("reading ACK on %s: %w", stage, err)
	}
	if n != 1 || ack[0] != 0x00 {
		return fmt.Errorf("LPD request not acknowledged on %s (0x%02x)", stage, ack[0])
	}
	return nil
}

// writeAll writes b, retrying partial writes until everything is sent.
func writeAll(w io.Writer, b []byte) error {
	sent := 0
	for sent < len(b) {
		n, err := w.Write(b[sent:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		sent += n
	}
	return nil
}

// -------------------- helpers --------------------

type nopCloser struct {
	io.ReadWriter
}

func (n nopCloser) Close() error { return nil }
