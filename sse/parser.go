package sse

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Kind distinguishes event records from comment lines.
type Kind string

const (
	KindEvent   Kind = "event"
	KindComment Kind = "comment"
)

// Record is one parsed frame of an event stream.
type Record struct {
	Kind Kind
	// Type is the value of the "event" field. Empty means the default "message" type.
	Type string
	// Data holds the joined "data" lines, or the comment text for KindComment.
	Data string
	ID   string
	// Retry is the reconnection time announced with this record, if any.
	Retry time.Duration
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Parser incrementally decodes an event stream.
// A Parser is not safe for concurrent use.
type Parser struct {
	onRecord func(Record)

	buf     []byte
	started bool
	skipLF  bool

	data      []string
	hasData   bool
	eventType string
	id        string
	retry     time.Duration
}

// NewParser creates a Parser that reports every completed record to onRecord.
func NewParser(onRecord func(Record)) *Parser {
	return &Parser{onRecord: onRecord}
}

// Feed appends a chunk of the stream. Complete records are reported before
// Feed returns; a trailing partial line is kept until more input arrives.
func (p *Parser) Feed(chunk []byte) {
	p.buf = append(p.buf, chunk...)

	if !p.started {
		if len(p.buf) < len(bom) && bytes.HasPrefix(bom, p.buf) {
			return
		}
		p.buf = bytes.TrimPrefix(p.buf, bom)
		p.started = true
	}

	// A CR ended the previous chunk; an LF at the start of this one belongs to it.
	if p.skipLF && len(p.buf) > 0 {
		if p.buf[0] == '\n' {
			p.buf = p.buf[1:]
		}
		p.skipLF = false
	}

	pos := 0
	for {
		i := bytes.IndexAny(p.buf[pos:], "\r\n")
		if i < 0 {
			break
		}
		end := pos + i
		line := string(p.buf[pos:end])
		next := end + 1
		if p.buf[end] == '\r' {
			if next < len(p.buf) {
				if p.buf[next] == '\n' {
					next++
				}
			} else {
				p.skipLF = true
			}
		}
		p.processLine(line)
		pos = next
	}

	p.buf = append(p.buf[:0], p.buf[pos:]...)
}

// Reset discards all buffered input and pending record state.
func (p *Parser) Reset() {
	p.buf = p.buf[:0]
	p.started = false
	p.skipLF = false
	p.resetRecord()
}

func (p *Parser) processLine(line string) {
	if line == "" {
		p.dispatch()
		return
	}

	if line[0] == ':' {
		p.onRecord(Record{
			Kind: KindComment,
			Data: strings.TrimPrefix(line[1:], " "),
		})
		return
	}

	field, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "event":
		p.eventType = value
	case "data":
		p.data = append(p.data, value)
		p.hasData = true
	case "id":
		if !strings.Contains(value, "\x00") {
			p.id = value
		}
	case "retry":
		if isDigits(value) {
			if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
				p.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

func (p *Parser) dispatch() {
	if p.hasData {
		p.onRecord(Record{
			Kind:  KindEvent,
			Type:  p.eventType,
			Data:  strings.Join(p.data, "\n"),
			ID:    p.id,
			Retry: p.retry,
		})
	}
	p.resetRecord()
}

func (p *Parser) resetRecord() {
	p.data = p.data[:0]
	p.hasData = false
	p.eventType = ""
	p.id = ""
	p.retry = 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
