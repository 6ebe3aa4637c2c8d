package tui

import "testing"

func TestValidateEndpoint(t *testing.T) {
	for in, ok := range map[string]bool{
		"http://localhost:4000":   true,
		"https://transcribe.lan":  true,
		" http://localhost:4000 ": true,
		"localhost:4000":          false,
		"ftp://host":              false,
		"":                        false,
	} {
		if err := validateEndpoint(in); (err == nil) != ok {
			t.Errorf("validateEndpoint(%q) error = %v", in, err)
		}
	}
}

func TestLanguageOptions(t *testing.T) {
	opts := languageOptions()
	if len(opts) != 58 {
		t.Fatalf("got %d options, want auto + 57", len(opts))
	}
	if opts[0].Value != "" || opts[0].Key != "Auto-detect" {
		t.Errorf("first option = %+v, want auto-detect", opts[0])
	}
}
