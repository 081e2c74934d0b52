package main

import "testing"

func TestSplitDirs(t *testing.T) {
	if got := splitDirs(""); got != nil {
		t.Errorf("splitDirs(\"\") = %v, want nil", got)
	}
	got := splitDirs("/data/flight1:/data/flight2")
	if len(got) != 2 || got[0] != "/data/flight1" || got[1] != "/data/flight2" {
		t.Errorf("splitDirs() = %v", got)
	}
}
