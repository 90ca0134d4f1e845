package telemetry

import "testing"

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in           string
		wantHost     string
		wantInsecure bool
	}{
		{"http://localhost:4318", "localhost:4318", true},
		{"http://jaeger:4318/v1/traces", "jaeger:4318", true},
		{"https://otel.example.com/", "otel.example.com", false},
		{"collector:4318", "collector:4318", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, insecure := parseEndpoint(tt.in)
			if host != tt.wantHost {
				t.Errorf("got host %q, want %q", host, tt.wantHost)
			}
			if insecure != tt.wantInsecure {
				t.Errorf("got insecure %v, want %v", insecure, tt.wantInsecure)
			}
		})
	}
}
