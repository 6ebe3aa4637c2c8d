package transcript

// Options is the JSON object sent alongside an upload to choose which
// artifacts the service generates for the job.
type Options struct {
	GenFileTxt      bool `json:"gen_file_txt" toml:"gen_file_txt"`
	GenFileSubtitle bool `json:"gen_file_subtitle" toml:"gen_file_subtitle"`
	GenFileVTT      bool `json:"gen_file_vtt" toml:"gen_file_vtt"`
}

// AllOptions enables every artifact.
func AllOptions() Options {
	return Options{GenFileTxt: true, GenFileSubtitle: true, GenFileVTT: true}
}
