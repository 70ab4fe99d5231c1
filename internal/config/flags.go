package config

import (
	"errors"
	"flag"
	"io"
)

// Parse builds a Config from command-line args. A -config file is loaded
// first so that every other flag overrides it. extra may bind
// command-specific flags on the same set; it is called twice.
func Parse(name string, args []string, extra func(fs *flag.FlagSet)) (*Config, error) {
	pre := flag.NewFlagSet(name, flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	path := pre.String("config", "", "JSON settings file")
	Default().Bind(pre)
	if extra != nil {
		extra(pre)
	}
	if err := pre.Parse(args); err != nil && !errors.Is(err, flag.ErrHelp) {
		return nil, err
	}

	c := Default()
	if *path != "" {
		loaded, err := Load(*path)
		if err != nil {
			return nil, err
		}
		c = loaded
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", *path, "JSON settings file")
	c.Bind(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, c.Validate()
}
