package config

import (
	"flag"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd", "-a", "https://api.example.com", "-w", "8"}, expectPanic: false,
			expected: &Config{APIEndpoint: "https://api.example.com", Workers: 8}},
		{name: "Test2 token file and db path", args: []string{"cmd", "-t", "/tmp/token", "-d", "/tmp/photos.db"}, expectPanic: false,
			expected: &Config{TokenFile: "/tmp/token", DBPath: "/tmp/photos.db"}},
		{name: "Test3 incorrect worker count", args: []string{"cmd", "-a", "https://api.example.com", "-w", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
