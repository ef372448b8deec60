//go:build linux

package sandbox

import "testing"

func TestParseCgroupV2Path(t *testing.T) {
	got, err := parseCgroupV2Path("1:name=systemd:/user.slice\n0::/user.slice/user-1000.slice/session.scope\n")
	if err != nil {
		t.Fatalf("parseCgroupV2Path: %v", err)
	}
	if got != "/user.slice/user-1000.slice/session.scope" {
		t.Fatalf("got %q", got)
	}
}

func TestParseCgroupV2PathMissing(t *testing.T) {
	if _, err := parseCgroupV2Path("1:name=systemd:/user.slice\n"); err == nil {
		t.Fatal("expected error when no v2 entry is present")
	}
}

func TestNewCgroupManagerNoopWithoutLimits(t *testing.T) {
	mgr, err := newCgroupManager("test-session", 0, 0)
	if err != nil {
		t.Fatalf("newCgroupManager: %v", err)
	}
	if mgr != nil {
		t.Fatalf("expected nil manager when no limits are requested")
	}
}

func TestCgroupManagerNilReceiverIsSafe(t *testing.T) {
	var mgr *cgroupManager
	if err := mgr.AddPID(1234); err != nil {
		t.Fatalf("AddPID on nil manager: %v", err)
	}
	if err := mgr.Destroy(); err != nil {
		t.Fatalf("Destroy on nil manager: %v", err)
	}
}
