package logging

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

func TestEntryServiceLoggerDelegates(t *testing.T) {
	entry := newFakeEntry()
	logger := NewEntryServiceLogger(entry)

	logger.Info("boot", LogFields{"transport": "channel"})
	child := logger.With(LogFields{FieldHandler: "people"})
	child.Debug("evaluated", LogFields{FieldDeliveries: 3})
	boom := errors.New("boom")
	child.Error("evaluation failed", boom, nil)
	child.Trace("trace", nil)

	logs := entry.recorder.logs
	if len(logs) != 4 {
		t.Fatalf("expected 4 log entries, got %d", len(logs))
	}
	if logs[0].level != "info" || logs[0].fields["transport"] != "channel" {
		t.Fatalf("unexpected first entry %#v", logs[0])
	}
	if logs[1].fields[FieldHandler] != "people" || logs[1].fields[FieldDeliveries] != 3 {
		t.Fatalf("expected merged fields, got %#v", logs[1].fields)
	}
	if logs[2].level != "error" || logs[2].err != boom {
		t.Fatalf("expected error entry carrying boom, got %#v", logs[2])
	}
	if logs[3].level != "trace" {
		t.Fatalf("expected trace entry, got %s", logs[3].level)
	}
	if logger.With(nil) != logger {
		t.Fatal("expected With(nil) to return the receiver")
	}
}

func TestConstructorsRejectNil(t *testing.T) {
	cases := map[string]func(){
		"slog":      func() { NewSlogServiceLogger(nil) },
		"watermill": func() { NewWatermillServiceLogger(nil) },
		"entry":     func() { NewEntryServiceLogger[anyEntry](nil) },
		"adapter":   func() { NewWatermillAdapter(nil) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestSlogServiceLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogServiceLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.With(LogFields{FieldEntityType: "test.Person"}).Info("matched", LogFields{FieldFilterIDs: "ann"})
	logger.Trace("traced", nil)

	out := buf.String()
	for _, want := range []string{"matched", "entity_type=test.Person", "filter_ids=ann", "traced"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestWatermillAdapterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogServiceLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	if _, ok := NewWatermillAdapter(logger).(*adapter); ok {
		t.Fatal("expected watermill-backed loggers to be unwrapped")
	}

	entry := newFakeEntry()
	wm := NewWatermillAdapter(NewEntryServiceLogger(entry))
	wm.With(watermill.LogFields{"child": "yes"}).Info("child", nil)
	wm.Error("failed", errors.New("boom"), watermill.LogFields{"k": "v"})

	logs := entry.recorder.logs
	if len(logs) != 2 || logs[0].fields["child"] != "yes" || logs[1].fields["k"] != "v" {
		t.Fatalf("unexpected delegated entries %#v", logs)
	}
}

func TestMessageFields(t *testing.T) {
	msg := message.NewMessage("uuid-1", nil)
	if got := MessageFields(msg); len(got) != 1 || got[FieldMessageUUID] != "uuid-1" {
		t.Fatalf("unexpected fields %#v", got)
	}
	middleware.SetCorrelationID("corr-1", msg)
	if got := MessageFields(msg); got[FieldCorrelationID] != "corr-1" {
		t.Fatalf("expected correlation id, got %#v", got)
	}
}

func TestNopServiceLogger(t *testing.T) {
	logger := NewNopServiceLogger()
	logger.With(LogFields{"k": "v"}).Error("ignored", errors.New("boom"), nil)
}

type anyEntry interface {
	EntryLoggerAdapter[anyEntry]
}

type loggedEntry struct {
	level  string
	msg    string
	fields LogFields
	err    error
}

type entryRecorder struct {
	logs []loggedEntry
}

type fakeEntry struct {
	recorder *entryRecorder
	fields   LogFields
	err      error
}

func newFakeEntry() *fakeEntry {
	return &fakeEntry{recorder: &entryRecorder{}}
}

func (f *fakeEntry) clone() *fakeEntry {
	fields := make(LogFields, len(f.fields)+1)
	for k, v := range f.fields {
		fields[k] = v
	}
	return &fakeEntry{recorder: f.recorder, fields: fields, err: f.err}
}

func (f *fakeEntry) Error(args ...any) { f.append("error", args...) }
func (f *fakeEntry) Info(args ...any)  { f.append("info", args...) }
func (f *fakeEntry) Debug(args ...any) { f.append("debug", args...) }
func (f *fakeEntry) Trace(args ...any) { f.append("trace", args...) }

func (f *fakeEntry) WithError(err error) *fakeEntry {
	c := f.clone()
	c.err = err
	return c
}

func (f *fakeEntry) WithField(key string, value any) *fakeEntry {
	c := f.clone()
	c.fields[key] = value
	return c
}

func (f *fakeEntry) append(level string, args ...any) {
	f.recorder.logs = append(f.recorder.logs, loggedEntry{
		level:  level,
		msg:    fmt.Sprint(args...),
		fields: f.fields,
		err:    f.err,
	})
}
