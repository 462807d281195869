package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/vshulcz/Lumectra/internal/domain"
)

func collect(t *testing.T, body string) ([]string, error) {
	t.Helper()
	dec := NewDecoder(strings.NewReader(body))
	var out []string
	for {
		ev, err := dec.Next()
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

func TestDecoder_Framing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "comment then two fragments",
			body: ": comment\ndata: a\ndata: b\n\n",
			want: []string{"ab"},
		},
		{
			name: "consecutive boundaries yield nothing extra",
			body: "data: a\ndata: b\n\n\n",
			want: []string{"ab"},
		},
		{
			name: "crlf terminators",
			body: "data: {\"x\":\r\ndata: 1}\r\n\r\n",
			want: []string{"{\"x\":1}"},
		},
		{
			name: "several events",
			body: "data: one\n\n:keepalive\n\ndata: two\n\n",
			want: []string{"one", "two"},
		},
		{
			name: "unterminated event is dropped at eof",
			body: "data: one\n\ndata: partial",
			want: []string{"one"},
		},
		{
			name: "empty body",
			body: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collect(t, tt.body)
			if !errors.Is(err, io.EOF) {
				t.Fatalf("terminal error=%v want io.EOF", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Fatalf("events=%q want %q", got, tt.want)
			}
		})
	}
}

func TestDecoder_Malformed(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data: a\n\ngarbage\ndata: b\n\n"))

	ev, err := dec.Next()
	if err != nil || ev != "a" {
		t.Fatalf("first event=(%q,%v) want (a,nil)", ev, err)
	}

	_, err = dec.Next()
	var me *domain.MalformedStreamError
	if !errors.As(err, &me) {
		t.Fatalf("err=%v want *MalformedStreamError", err)
	}
	if me.Line != "garbage" {
		t.Fatalf("Line=%q want garbage", me.Line)
	}

	if _, err2 := dec.Next(); !errors.Is(err2, domain.ErrMalformedStream) {
		t.Fatalf("sequence must stay terminated, got %v", err2)
	}
}

func TestDecoder_DataWithoutSpaceIsMalformed(t *testing.T) {
	_, err := collect(t, "data:x\n\n")
	if !errors.Is(err, domain.ErrMalformedStream) {
		t.Fatalf("err=%v want ErrMalformedStream", err)
	}
}

func TestDecoder_LongLine(t *testing.T) {
	long := strings.Repeat("x", 512*1024)
	got, err := collect(t, "data: "+long+"\n\n")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v", err)
	}
	if len(got) != 1 || len(got[0]) != len(long) {
		t.Fatalf("long event truncated: %d events", len(got))
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestDecoder_ReadError(t *testing.T) {
	boom := errors.New("reset by peer")
	dec := NewDecoder(io.MultiReader(strings.NewReader("data: a\n"), failingReader{boom}))
	if _, err := dec.Next(); !errors.Is(err, boom) {
		t.Fatalf("err=%v want %v", err, boom)
	}
}

func TestDecoder_Events(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data: 1\n\ndata: 2\n\nbad\n"))
	var got []string
	var last error
	for ev, err := range dec.Events() {
		if err != nil {
			last = err
			break
		}
		got = append(got, ev)
	}
	if strings.Join(got, ",") != "1,2" {
		t.Fatalf("events=%q", got)
	}
	if !errors.Is(last, domain.ErrMalformedStream) {
		t.Fatalf("last err=%v", last)
	}

	clean := NewDecoder(strings.NewReader("data: 1\n\n"))
	n := 0
	for _, err := range clean.Events() {
		if err != nil {
			t.Fatalf("unexpected err %v", err)
		}
		n++
	}
	if n != 1 {
		t.Fatalf("n=%d want 1", n)
	}
}
