package adb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type call struct {
	name string
	args []string
}

// fakeRunner records every command and answers from a script keyed by the
// joined argument list.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	started []call
	outputs map[string][]byte
	errs    map[string]error
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name, append([]string(nil), args...)})
	key := strings.Join(args, " ")
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.outputs[key], nil
}

func (f *fakeRunner) Start(name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, call{name, append([]string(nil), args...)})
	return nil
}

func TestSerialForPort(t *testing.T) {
	for p := 5554; p <= 5584; p += 2 {
		if got, want := SerialForPort(p), fmt.Sprintf("emulator-%d", p); got != want {
			t.Errorf("SerialForPort(%d) = %q, want %q", p, got, want)
		}
	}
}

func TestBootCompletedTrimsOutput(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]byte{
		"-s emulator-5554 shell getprop sys.boot_completed": []byte("1\r\n"),
	}}
	c := New("/sdk/adb", "/sdk/emulator", WithRunner(r))

	got, err := c.BootCompleted(context.Background(), "emulator-5554")
	if err != nil {
		t.Fatalf("BootCompleted: %v", err)
	}
	if got != "1" {
		t.Errorf("got %q, want %q", got, "1")
	}
	if r.calls[0].name != "/sdk/adb" {
		t.Errorf("invoked %q, want adb path", r.calls[0].name)
	}
}

func TestScreencapArgs(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]byte{
		"-s emulator-5556 exec-out screencap -p": []byte("\x89PNG"),
	}}
	c := New("adb", "emulator", WithRunner(r))

	img, err := c.Screencap(context.Background(), "emulator-5556")
	if err != nil {
		t.Fatalf("Screencap: %v", err)
	}
	if string(img) != "\x89PNG" {
		t.Errorf("unexpected payload %q", img)
	}
}

func TestStartIntentArgs(t *testing.T) {
	r := &fakeRunner{}
	c := New("adb", "emulator", WithRunner(r))

	if err := c.StartIntent(context.Background(), "emulator-5554", ViewIntent("http://www.google.com")); err != nil {
		t.Fatal(err)
	}
	if err := c.StartIntent(context.Background(), "emulator-5554", DialIntent()); err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"-s", "emulator-5554", "shell", "am", "start", "-a", ActionView, "-d", "http://www.google.com"},
		{"-s", "emulator-5554", "shell", "am", "start", "-a", ActionDial},
	}
	for i, w := range want {
		if !reflect.DeepEqual(r.calls[i].args, w) {
			t.Errorf("call %d args = %v, want %v", i, r.calls[i].args, w)
		}
	}
}

func TestStartIntentPropagatesToolError(t *testing.T) {
	toolErr := &ToolError{Tool: "adb", ExitCode: 1, Stderr: "Error: Activity not started"}
	r := &fakeRunner{errs: map[string]error{
		"-s emulator-5554 shell am start -a " + ActionDial: toolErr,
	}}
	c := New("adb", "emulator", WithRunner(r))

	err := c.StartIntent(context.Background(), "emulator-5554", DialIntent())
	if !errors.Is(err, ErrToolFailed) {
		t.Fatalf("expected ErrToolFailed, got %v", err)
	}
	var te *ToolError
	if !errors.As(err, &te) || te.Detail() != "Error: Activity not started" {
		t.Errorf("detail not preserved: %v", err)
	}
}

func TestLaunchArgs(t *testing.T) {
	r := &fakeRunner{}
	c := New("adb", "/sdk/emulator/emulator", WithRunner(r))

	if err := c.Launch(LaunchSpec{AVD: "Pixel_API_34", Port: 5560}); err != nil {
		t.Fatal(err)
	}
	if len(r.started) != 1 {
		t.Fatalf("expected one spawned process, got %d", len(r.started))
	}
	want := []string{"-avd", "Pixel_API_34", "-port", "5560", "-read-only", "-no-window", "-no-audio"}
	if r.started[0].name != "/sdk/emulator/emulator" || !reflect.DeepEqual(r.started[0].args, want) {
		t.Errorf("spawned %s %v, want emulator %v", r.started[0].name, r.started[0].args, want)
	}
}

func TestLaunchRequiresAVD(t *testing.T) {
	r := &fakeRunner{}
	c := New("adb", "emulator", WithRunner(r))
	if err := c.Launch(LaunchSpec{Port: 5554}); err == nil {
		t.Fatal("expected error for empty avd")
	}
	if len(r.started) != 0 {
		t.Error("no process should be spawned")
	}
}

func TestDevicesParsing(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]byte{
		"devices": []byte("* daemon started successfully\nList of devices attached\nemulator-5554\tdevice\nemulator-5556\toffline\nR58M123\tunauthorized\nweird\tsideload\n\n"),
	}}
	c := New("adb", "emulator", WithRunner(r))

	devices, err := c.Devices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []Device{
		{Serial: "emulator-5554", State: StateDevice, IsEmulator: true},
		{Serial: "emulator-5556", State: StateOffline, IsEmulator: true},
		{Serial: "R58M123", State: StateUnauthorized},
		{Serial: "weird", State: StateUnknown},
	}
	if !reflect.DeepEqual(devices, want) {
		t.Errorf("devices = %+v, want %+v", devices, want)
	}
	if !devices[0].Online() || devices[1].Online() {
		t.Error("Online() mismatch")
	}
}

func TestListAVDsSkipsDiagnostics(t *testing.T) {
	r := &fakeRunner{outputs: map[string][]byte{
		"-list-avds": []byte("INFO    | Storing crashdata in: /tmp\nMedium_Phone_API_36.0\nPixel_7\n"),
	}}
	c := New("adb", "emulator", WithRunner(r))

	avds, err := c.ListAVDs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(avds, []string{"Medium_Phone_API_36.0", "Pixel_7"}) {
		t.Errorf("avds = %v", avds)
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	out, err := ExecRunner{}.Output(context.Background(), os.Args[0], "-test.run=TestHelperProcess", "--", "ok")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if strings.TrimSpace(string(out)) != "1" {
		t.Errorf("stdout = %q", out)
	}
}

func TestExecRunnerToolError(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	_, err := ExecRunner{}.Output(context.Background(), os.Args[0], "-test.run=TestHelperProcess", "--", "fail")

	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected *ToolError, got %T %v", err, err)
	}
	if te.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", te.ExitCode)
	}
	if te.Stderr != "device offline" {
		t.Errorf("stderr = %q", te.Stderr)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ExecRunner{}.Output(ctx, os.Args[0], "-test.run=TestHelperProcess", "--", "hang")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	switch args[0] {
	case "ok":
		fmt.Println("1")
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "device offline")
		os.Exit(3)
	case "hang":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}
	os.Exit(2)
}
