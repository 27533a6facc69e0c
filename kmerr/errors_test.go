package kmerr

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New("cache.Get", CodeResource, "slot exhausted").WithObject(7)
	if !errors.Is(err, ErrSlotExhausted) {
		t.Fatalf("expected errors.Is to match on Code, got false")
	}
	if errors.Is(err, ErrMisaligned) {
		t.Fatalf("expected errors.Is to reject a different Code")
	}
}

func TestErrorWrapPreservesInner(t *testing.T) {
	inner := errors.New("short read")
	wrapped := Wrap("ioformat.Read", CodeDevice, inner)
	if !errors.Is(wrapped, inner) {
		t.Fatalf("expected Unwrap chain to reach inner error")
	}
}

func TestIsCodeHelper(t *testing.T) {
	err := New("scheduler.Run", CodeConsistency, "tile mismatch")
	if !IsCode(err, CodeConsistency) {
		t.Fatalf("expected IsCode to report true")
	}
	if IsCode(err, CodeDevice) {
		t.Fatalf("expected IsCode to report false for unrelated code")
	}
}

func TestWithDeviceAndBuildLog(t *testing.T) {
	base := New("schedule.Build", CodeDevice, "kernel build failed")
	annotated := base.WithDevice(3).WithBuildLog("error: undefined symbol foo")
	if annotated.DeviceID != 3 {
		t.Fatalf("DeviceID = %d, want 3", annotated.DeviceID)
	}
	if annotated.BuildLog == "" {
		t.Fatalf("expected build log to be retained")
	}
	if base.DeviceID != -1 {
		t.Fatalf("expected WithDevice to not mutate the receiver")
	}
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := New("cache.Get", CodeResource, "object not registered").WithObject(5)
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
}
