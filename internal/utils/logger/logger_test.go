package logger

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"debug", "debug", false},
		{"INFO", "info", false},
		{"", "info", false},
		{"warning", "warn", false},
		{"error", "error", false},
		{"loud", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerBeforeInitIsUsable(t *testing.T) {
	mu.Lock()
	prev := global
	global = nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		global = prev
		mu.Unlock()
	})

	log := Logger()
	if log == nil {
		t.Fatal("expected non-nil logger before Init")
	}
	log.Infof("no-op logger accepts messages")
}

func TestInitRejectsBadLevel(t *testing.T) {
	if err := Init("verbose-ish"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
