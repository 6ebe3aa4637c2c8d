package subtitle

import "github.com/leonardotrapani/webtranscriber/internal/transcript"

// Requested lists the formats o asks the service to generate, in download
// order.
func Requested(o transcript.Options) []Format {
	var out []Format
	if o.GenFileSubtitle {
		out = append(out, SRT)
	}
	if o.GenFileVTT {
		out = append(out, VTT)
	}
	if o.GenFileTxt {
		out = append(out, TXT)
	}
	return out
}

// Enable returns o with the given formats switched on.
func Enable(o transcript.Options, formats ...Format) transcript.Options {
	for _, f := range formats {
		switch f {
		case SRT:
			o.GenFileSubtitle = true
		case VTT:
			o.GenFileVTT = true
		case TXT:
			o.GenFileTxt = true
		}
	}
	return o
}

// ParseFormats parses each entry with ParseFormat and drops duplicates.
func ParseFormats(list []string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, s := range list {
		f, err := ParseFormat(s)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}
