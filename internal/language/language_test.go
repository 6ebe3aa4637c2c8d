package language

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		code     string
		wantOK   bool
		wantCode string
		wantName string
	}{
		{"en", true, "en", "English"},
		{"ES", true, "es", "Spanish"},
		{" zh ", true, "zh", "Chinese"},
		{"", true, "", "Auto-detect"},
		{"auto", true, "", "Auto-detect"},
		{"xyz", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := Lookup(tt.code)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.code, ok, tt.wantOK)
			}
			if got.Code != tt.wantCode || got.Name != tt.wantName {
				t.Errorf("Lookup(%q) = %+v", tt.code, got)
			}
		})
	}
}

func TestIsValidCode(t *testing.T) {
	for code, want := range map[string]bool{"en": true, "": true, "auto": true, "invalid": false} {
		if got := IsValidCode(code); got != want {
			t.Errorf("IsValidCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestList(t *testing.T) {
	if n := len(List()); n != 57 {
		t.Errorf("List() returned %d languages, want 57", n)
	}
	if n := len(Codes()); n != 57 {
		t.Errorf("Codes() returned %d codes, want 57", n)
	}
}

func TestForEngine(t *testing.T) {
	tests := []struct {
		code   string
		engine string
		want   string
	}{
		{"en", "whisper-cpp", "en"},
		{"", "whisper-cpp", "auto"},
		{"auto", "whisper-cpp", "auto"},
		{"en", "openai", "en"},
		{"", "openai", ""},
		{"auto", "openai", ""},
		{"xx", "openai", "xx"},
	}

	for _, tt := range tests {
		t.Run(tt.code+"_"+tt.engine, func(t *testing.T) {
			if got := ForEngine(tt.code, tt.engine); got != tt.want {
				t.Errorf("ForEngine(%q, %q) = %q, want %q", tt.code, tt.engine, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got := Auto.String(); got != "Auto-detect" {
		t.Errorf("Auto.String() = %q", got)
	}
	en, _ := Lookup("en")
	if got := en.String(); got != "English" {
		t.Errorf("English.String() = %q", got)
	}
	fr, _ := Lookup("fr")
	if got := fr.String(); got != "French (Français)" {
		t.Errorf("French.String() = %q", got)
	}
}
