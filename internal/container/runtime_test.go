// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool
	runnableCmds  map[string]bool
	runPipedFunc  func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
	pipedArgs     []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(_ context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	m.pipedArgs = args
	if m.runPipedFunc != nil {
		return m.runPipedFunc(name, args, stdin, stdout, stderr)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), tt.exec)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "no container runtime available") {
					t.Fatalf("expected no-runtime error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		rt      func(*mockExecutor) Runtime
		cmds    map[string]bool
		wantErr bool
	}{
		{"docker found", func(e *mockExecutor) Runtime { return newDockerRuntime(e) }, map[string]bool{"docker image inspect markitdown:latest": true}, false},
		{"docker missing", func(e *mockExecutor) Runtime { return newDockerRuntime(e) }, nil, true},
		{"podman found", func(e *mockExecutor) Runtime { return newPodmanRuntime(e) }, map[string]bool{"podman image exists markitdown:latest": true}, false},
		{"podman missing", func(e *mockExecutor) Runtime { return newPodmanRuntime(e) }, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rt(&mockExecutor{runnableCmds: tt.cmds}).ImageExists(context.Background(), "markitdown:latest")
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "markitdown:latest") {
					t.Fatalf("expected error naming the image, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	exec := &mockExecutor{
		runPipedFunc: func(name string, args []string, stdin io.Reader, stdout, _ io.Writer) error {
			data, _ := io.ReadAll(stdin)
			_, _ = stdout.Write([]byte(name + ": " + string(data)))
			return nil
		},
	}
	var out bytes.Buffer
	if err := newPodmanRuntime(exec).Run(context.Background(), "markitdown:latest", strings.NewReader("pdf"), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "podman: pdf" {
		t.Errorf("output = %q", got)
	}
	if got := strings.Join(exec.pipedArgs, " "); got != "run --rm -i --network none markitdown:latest" {
		t.Errorf("args = %q", got)
	}
}

func TestRunFailureQuotesStderr(t *testing.T) {
	exec := &mockExecutor{
		runPipedFunc: func(_ string, _ []string, _ io.Reader, _, stderr io.Writer) error {
			_, _ = stderr.Write([]byte("  unsupported file\n"))
			return errors.New("exit status 1")
		},
	}
	err := newDockerRuntime(exec).Run(context.Background(), "markitdown:latest", strings.NewReader(""), io.Discard)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "exit status 1: unsupported file") {
		t.Errorf("error = %v", err)
	}
}
