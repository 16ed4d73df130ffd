package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const envFileFlag = "env-file"

// EnvFile loads environment variables from dotenv files
type EnvFile struct {
	Paths []string
}

// Flags returns CLI flags for env file loading. The flag is declared for parsing and
// help output only; the files are read by LoadFromArgs.
func (c *EnvFile) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  envFileFlag,
			Usage: "Load environment variables from the file. Existing variables are not overridden",
		},
	}
}

// LoadFromArgs reads every --env-file given in args into the process environment.
// It must run before the command is parsed, because flag env sources are resolved
// during parsing.
func (c *EnvFile) LoadFromArgs(args []string) error {
	c.Paths = envFilePaths(args)
	return c.Load()
}

// Load reads the configured files into the process environment
func (c *EnvFile) Load() error {
	if len(c.Paths) == 0 {
		return nil
	}
	if err := godotenv.Load(c.Paths...); err != nil {
		return goerr.Wrap(err, "failed to load env file", goerr.V("paths", c.Paths))
	}
	return nil
}

// envFilePaths collects the values of --env-file (or -env-file) in args, including
// the --env-file=a,b form. Scanning stops at "--".
func envFilePaths(args []string) []string {
	var values []string
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}

		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}

		switch {
		case name == envFileFlag:
			if i+1 < len(args) {
				values = append(values, args[i+1])
				i++
			}
		case strings.HasPrefix(name, envFileFlag+"="):
			values = append(values, strings.TrimPrefix(name, envFileFlag+"="))
		}
	}

	var paths []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
	}
	return paths
}
