package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swotrace/internal/config"
)

func TestCaptureSettingsRange(t *testing.T) {
	tests := []struct {
		name     string
		cmd      captureCmd
		wantErr  string
		wantPort uint16
	}{
		{"PortTooLarge", captureCmd{tcpAddr: "localhost", port: 70000, dataSize: -1}, "-port 70000 out of range", 0},
		{"TPIUTooLarge", captureCmd{file: "x.swo", tpiuID: 0x101, dataSize: -1}, "-tpiu 0x101 out of range", 0},
		{"PortMax", captureCmd{tcpAddr: "localhost", port: 65535, dataSize: -1}, "", 65535},
		{"TPIUValid", captureCmd{file: "x.swo", tpiuID: 2, dataSize: -1}, "", 2332},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.cmd.settings()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, cfg.Transport.Port)
		})
	}
}

func TestCaptureSettingsOverrides(t *testing.T) {
	cmd := captureCmd{tcpAddr: "10.0.0.2", port: 19021, tpiuID: 1, dataSize: 4}
	cfg, err := cmd.settings()
	require.NoError(t, err)
	assert.Equal(t, config.KindTCP, cfg.Transport.Kind)
	assert.Equal(t, "10.0.0.2", cfg.Transport.Address)
	assert.Equal(t, uint16(19021), cfg.Transport.Port)
	assert.Equal(t, uint8(1), cfg.Decode.TPIUSource)
	assert.Equal(t, 4, cfg.Decode.DataSize)
}

func TestProfileSettings(t *testing.T) {
	tests := []struct {
		name     string
		base     uint64
		top      uint64
		wantErr  string
		wantBase uint32
		wantTop  uint32
	}{
		{"Defaults", 0, 0, "", 0, 0x100000},
		{"Range", 0x08000000, 0x08010000, "", 0x08000000, 0x08010000},
		{"TopMax", 0x100, 0xFFFFFFFF, "", 0x100, 0xFFFFFFFF},
		{"BaseTooLarge", 0x100000100, 0x200, "-code-base 0x100000100 is not a 32-bit address", 0, 0},
		{"TopTooLarge", 0, 0x100000200, "-code-top 0x100000200 is not a 32-bit address", 0, 0},
		{"Inverted", 0x200, 0x100, "code_top", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := profileCmd{
				captureCmd: captureCmd{file: "x.swo", dataSize: -1},
				codeBase:   tt.base,
				codeTop:    tt.top,
			}
			cfg, err := cmd.profileSettings()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, config.ModeProfile, cfg.Decode.Mode)
			assert.Equal(t, tt.wantBase, cfg.Decode.CodeBase)
			assert.Equal(t, tt.wantTop, cfg.Decode.CodeTop)
		})
	}
}
