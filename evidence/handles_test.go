package evidence

import "testing"

func TestValidHandle(t *testing.T) {
	tests := []struct {
		handle string
		want   bool
	}{
		{"janedoe", true},
		{"jane_doe99", true},
		{"j4ne", true},
		{"ab", false},          // too short
		{"12345678", false},    // all digits
		{"admin", false},       // generic
		{"test", false},        // generic
		{"qwerty123", false},   // keyboard walk
		{"asdfasdf", false},    // keyboard walk
		{"user", false},        // generic
		{"jane.doe", true},
		{"thomr_strom", true},
		{"jane-doe-12345", true}, // numeric discriminator suffix
		{"12345ab", false},       // digit run with nothing left
		{"x11111", false},
	}
	for _, tc := range tests {
		t.Run(tc.handle, func(t *testing.T) {
			if got := ValidHandle(tc.handle); got != tc.want {
				t.Errorf("ValidHandle(%q) = %v, want %v", tc.handle, got, tc.want)
			}
		})
	}
}

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		url          string
		wantPlatform string
		wantHandle   string
		wantOK       bool
	}{
		{"https://instagram.com/janedoe", "instagram", "janedoe", true},
		{"https://www.instagram.com/janedoe/", "instagram", "janedoe", true},
		{"https://github.com/jane-doe", "github", "jane-doe", true},
		{"https://linkedin.com/in/jane-doe-12345", "linkedin", "jane-doe-12345", true},
		{"https://twitter.com/janedoe", "twitter", "janedoe", true},
		{"https://x.com/janedoe", "twitter", "janedoe", true},
		{"https://tiktok.com/@janedoe", "tiktok", "janedoe", true},
		{"https://reddit.com/user/janedoe", "reddit", "janedoe", true},
		{"https://example.com/blog/post", "", "", false},
		{"https://instagram.com/explore", "", "", false}, // reserved segment
	}
	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			platform, handle, ok := ClassifyURL(tc.url)
			if ok != tc.wantOK || platform != tc.wantPlatform || handle != tc.wantHandle {
				t.Errorf("ClassifyURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tc.url, platform, handle, ok, tc.wantPlatform, tc.wantHandle, tc.wantOK)
			}
		})
	}
}

func TestNormalizeLinkedInSlugHandle(t *testing.T) {
	ev := Normalize("Profile: https://linkedin.com/in/jane-doe-12345", "")
	found := false
	for _, h := range ev.Handles {
		if h.Platform == "linkedin" && h.Handle == "jane-doe-12345" {
			found = true
		}
	}
	if !found {
		t.Errorf("Handles = %v, want linkedin:jane-doe-12345", ev.Handles)
	}
}

func TestExtractHandlesMentions(t *testing.T) {
	ev := Normalize("ping @janedoe or @admin for access", "")
	found := false
	for _, h := range ev.Handles {
		if h.Handle == "admin" {
			t.Errorf("generic mention @admin should be rejected, got %+v", h)
		}
		if h.Handle == "janedoe" && h.Platform == "" {
			found = true
		}
	}
	if !found {
		t.Errorf("Handles = %v, want platformless mention janedoe", ev.Handles)
	}
}
