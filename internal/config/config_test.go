package config

import "testing"

func TestRemotePlanner(t *testing.T) {
	cases := []struct {
		url    string
		remote bool
	}{
		{"http://localhost:8080", false},
		{"http://127.0.0.1:8080", false},
		{"http://[::1]:8080", false},
		{"http://0.0.0.0:8080", false},
		{"https://planner.example.com", true},
		{"https://api.example.com/otp", true},
	}

	for _, tc := range cases {
		c := &Config{PlannerBaseURL: tc.url}
		if got := c.RemotePlanner(); got != tc.remote {
			t.Errorf("RemotePlanner(%q) = %v, want %v", tc.url, got, tc.remote)
		}
	}
}
