package remote

import "testing"

func TestNew_NoClientTimeout(t *testing.T) {
	c := New(Config{BaseURL: "https://me.dropmark.example", Username: "ann", Password: "s3cret"})

	if c.json.Timeout != 0 {
		t.Errorf("json client Timeout = %v, want 0", c.json.Timeout)
	}
	if c.binary.Timeout != 0 {
		t.Errorf("binary client Timeout = %v, want 0", c.binary.Timeout)
	}
}

func TestSuccessful(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{status: 199, want: false},
		{status: 200, want: true},
		{status: 203, want: true},
		{status: 299, want: true},
		{status: 304, want: false},
		{status: 404, want: false},
	}

	for _, tt := range tests {
		if got := successful(tt.status); got != tt.want {
			t.Errorf("successful(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
