package audiocapture

import "testing"

func TestMonitorConfig(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		rate     int
		want     StreamConfig
		wantErr  bool
	}{
		{"mono", 1, 44100, StreamConfig{1, 44100, FormatFloat32}, false},
		{"stereo", 2, 48000, StreamConfig{2, 48000, FormatFloat32}, false},
		{"surround capped", 6, 48000, StreamConfig{2, 48000, FormatFloat32}, false},
		{"no channels", 0, 48000, StreamConfig{}, true},
		{"no rate", 2, 0, StreamConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := monitorConfig(tt.channels, tt.rate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("monitorConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("monitorConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPulseWriterRejectsMissingCallback(t *testing.T) {
	if _, err := pulseWriter(FormatInt16, Handler{}); err == nil {
		t.Error("expected error for handler without an i16 callback")
	}
}
