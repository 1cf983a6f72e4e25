// Package demo holds the stops of the hello-world demo: Hello prints a
// message through Printer, and Printer flushes its buffer to a Writer.
package demo

import (
	"io"
	"strings"

	stopbus "github.com/lockp111/go-stopbus"
)

var (
	HelloEvent = stopbus.NewEvent[struct{}, struct{}]("hello")
	PrintEvent = stopbus.NewEvent[string, struct{}]("print")
	FlushEvent = stopbus.NewEvent[struct{}, struct{}]("flush")
	WriteEvent = stopbus.NewEvent[string, error]("write")
)

// Hello prints Message and flushes.
type Hello struct {
	Message string
}

func (h *Hello) Handlers(r *stopbus.Registry) *stopbus.Registry {
	return stopbus.On(r, HelloEvent, (*Hello).hello)
}

func (h *Hello) hello(_ struct{}, bus *stopbus.Interface) struct{} {
	stopbus.Must[struct{}](bus)(stopbus.Call(bus, PrintEvent, h.Message))
	stopbus.Must[struct{}](bus)(stopbus.Call(bus, FlushEvent, struct{}{}))
	return struct{}{}
}

// Printer buffers lines until flushed.
type Printer struct {
	buf     strings.Builder
	Flushes int
}

func (p *Printer) Handlers(r *stopbus.Registry) *stopbus.Registry {
	r = stopbus.On(r, PrintEvent, (*Printer).print)
	return stopbus.On(r, FlushEvent, (*Printer).flush)
}

func (p *Printer) print(line string, _ *stopbus.Interface) struct{} {
	p.buf.WriteString(line)
	p.buf.WriteByte('\n')
	return struct{}{}
}

func (p *Printer) flush(_ struct{}, bus *stopbus.Interface) struct{} {
	err := stopbus.Must[error](bus)(stopbus.Call(bus, WriteEvent, p.buf.String()))
	bus.Check(err)
	p.buf.Reset()
	p.Flushes++
	return struct{}{}
}

// Pending returns the buffered, unflushed text.
func (p *Printer) Pending() string {
	return p.buf.String()
}

// Writer writes text to W.
type Writer struct {
	W io.Writer
}

func (w *Writer) Handlers(r *stopbus.Registry) *stopbus.Registry {
	return stopbus.On(r, WriteEvent, (*Writer).write)
}

func (w *Writer) write(data string, _ *stopbus.Interface) error {
	_, err := io.WriteString(w.W, data)
	return err
}
