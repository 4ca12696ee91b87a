package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const standard8 = "......../......../......../...xo.../...ox.../......../......../........"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"flipctl"}, args...))
	return out.String(), err
}

func TestCapturesCommand(t *testing.T) {
	out, err := run(t, "captures", "--board", standard8, "--at", "d3", "--side", "first")
	if err != nil {
		t.Fatalf("captures: %v", err)
	}
	if !strings.Contains(out, "d3 first: 1") || !strings.Contains(out, "\nd4\n") {
		t.Fatalf("output = %q", out)
	}

	out, err = run(t, "captures", "--board", standard8, "--at", "a1")
	if err != nil {
		t.Fatalf("captures a1: %v", err)
	}
	if !strings.Contains(out, "a1 first: 0") {
		t.Fatalf("output = %q", out)
	}
}

func TestCapturesRejectsBadInput(t *testing.T) {
	cases := [][]string{
		{"captures", "--board", "..x/..", "--at", "a1"},
		{"captures", "--board", standard8, "--at", "zz"},
		{"captures", "--board", standard8, "--at", "i9"},
		{"captures", "--board", standard8, "--at", "d3", "--side", "purple"},
	}
	for _, args := range cases {
		if _, err := run(t, args...); err == nil {
			t.Fatalf("%v accepted", args)
		}
	}
}

func TestReplayCommand(t *testing.T) {
	out, err := run(t, "replay", "--moves", "d3,c3")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(out, "moves 2 score 3:3 turn first") {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, " 3 ..ox....") {
		t.Fatalf("board rows = %q", out)
	}

	if _, err := run(t, "replay", "--moves", "d3,d3"); err == nil {
		t.Fatalf("occupied square accepted")
	}
	if _, err := run(t, "replay", "--variant", "9x9"); err == nil {
		t.Fatalf("unknown variant accepted")
	}
}

func TestReplayResult(t *testing.T) {
	r, err := replayMoves("10x10", "")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if r.board.Width() != 10 || r.moves != 0 || r.last != nil {
		t.Fatalf("replay = %+v", r)
	}
}

func TestRenderCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.png")
	out, err := run(t, "render", "--moves", "d3", "--out", path)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Fatalf("output = %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("not a PNG")
	}
}
