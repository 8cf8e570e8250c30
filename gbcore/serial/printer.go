package serial

import "log/slog"

// PrinterTransport is a Transport that logs outgoing bytes as text instead
// of relaying them to a peer, for test ROMs that use the link port as a
// debug console. Grounded on the teacher's LogSink
// (_examples/valerio-go-jeebie/jeebie/serial/logsink.go) and the original's
// run_printer line buffering.
type PrinterTransport struct {
	logger  *slog.Logger
	lineBuf []byte
}

// PrinterOption configures a PrinterTransport, matching the teacher's
// LogSinkOption functional-options idiom.
type PrinterOption func(*PrinterTransport)

// WithLogger overrides the default slog.Default() logger, mainly so tests
// can capture emitted lines.
func WithLogger(l *slog.Logger) PrinterOption {
	return func(p *PrinterTransport) { p.logger = l }
}

// NewPrinterTransport returns a transport that logs each line it receives
// via slog.Default(), matching the teacher's default LogSink behavior.
func NewPrinterTransport(opts ...PrinterOption) *PrinterTransport {
	p := &PrinterTransport{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PrinterTransport) Send(b byte) error {
	if b != '\n' {
		p.lineBuf = append(p.lineBuf, b)
	}
	if b == '\n' || len(p.lineBuf) == printLineMax {
		if len(p.lineBuf) > 0 {
			p.logger.Info("serial", "line", string(p.lineBuf))
			p.lineBuf = p.lineBuf[:0]
		}
	}
	return nil
}

func (p *PrinterTransport) Recv() (byte, error) { return 0xFF, nil }
