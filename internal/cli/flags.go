package cli

import (
	"flag"
	"io"
)

// DefaultConfigPath is read when -config is not given. A missing default
// file falls back to environment variables.
const DefaultConfigPath = "config.yaml"

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	ConfigPath string
	Port       int // 0 keeps the configured port
	Verbose    bool
	NoSeed     bool

	// configSet reports whether -config was passed explicitly.
	configSet bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(name string, args []string, output io.Writer) (*ServeFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	flags := &ServeFlags{}
	fs.StringVar(&flags.ConfigPath, "config", DefaultConfigPath, "Path to the YAML config file")
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (overrides server.port)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&flags.NoSeed, "no-seed", false, "Skip loading the product seed file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			flags.configSet = true
		}
	})
	return flags, nil
}

// ConfigExplicit reports whether the config path was given on the command
// line, in which case a missing file is an error.
func (f *ServeFlags) ConfigExplicit() bool {
	return f.configSet
}
