package cmd

import (
	"strings"
	"testing"
)

type recordingSource struct {
	outputs []*Output
}

func (s *recordingSource) Name() string { return "test" }

func (s *recordingSource) SendCommandOutput(o *Output) {
	s.outputs = append(s.outputs, o)
}

type echoRunnable struct{}

func (echoRunnable) Run(args []string, _ Source, o *Output) {
	o.Printf("echo: %v", strings.Join(args, " "))
}

func TestExecuteLine(t *testing.T) {
	Register(New("echo", "Echoes its arguments.", "/echo <text>", echoRunnable{}))
	src := &recordingSource{}

	ExecuteLine(src, "/echo hello world")
	if len(src.outputs) != 1 {
		t.Fatalf("expected one output, got %v", len(src.outputs))
	}
	msgs := src.outputs[0].Messages()
	if len(msgs) != 1 || msgs[0] != "echo: hello world" {
		t.Fatalf("unexpected messages: %v", msgs)
	}
}

func TestExecuteLineWithoutSlash(t *testing.T) {
	Register(New("echo", "Echoes its arguments.", "/echo <text>", echoRunnable{}))
	src := &recordingSource{}
	ExecuteLine(src, "echo hi")
	if len(src.outputs) != 1 || len(src.outputs[0].Errors()) != 0 {
		t.Fatal("the leading slash must be optional")
	}
}

func TestExecuteLineUnknownCommand(t *testing.T) {
	src := &recordingSource{}
	ExecuteLine(src, "/definitely-not-registered")
	if len(src.outputs) != 1 || len(src.outputs[0].Errors()) != 1 {
		t.Fatal("unknown commands must report an error to the source")
	}
}

func TestExecuteLineBlankInput(t *testing.T) {
	src := &recordingSource{}
	ExecuteLine(src, "   ")
	if len(src.outputs) != 0 {
		t.Fatal("blank input should produce no output")
	}
}

func TestByNameCaseInsensitive(t *testing.T) {
	Register(New("Echo", "Echoes.", "/echo", echoRunnable{}))
	if _, ok := ByName("ECHO"); !ok {
		t.Fatal("command lookup should ignore case")
	}
}
