package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name           string
		ground, canopy bool
		want           []string
	}{
		{"neither flag runs both", false, false, []string{"ground", "canopy"}},
		{"ground only", true, false, []string{"ground"}},
		{"canopy only", false, true, []string{"canopy"}},
		{"both", true, true, []string{"ground", "canopy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kinds(tt.ground, tt.canopy))
		})
	}
}

func TestSplitDirs(t *testing.T) {
	assert.Nil(t, splitDirs(""))
	assert.Equal(t, []string{"/a", "/b"}, splitDirs("/a:/b"))
}

func TestFlagDefaults(t *testing.T) {
	assert.False(t, *ground)
	assert.False(t, *canopy)
	assert.False(t, *ingestFirst)
	assert.Empty(t, *configPath)
}
