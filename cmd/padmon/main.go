// Command padmon brings up a DWC2 USB host, enumerates the gamepad on its
// root port and prints the pad's input reports.
//
// The simulator backend runs anywhere; the devmem backend drives a real
// core on a Raspberry Pi and needs root.
package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

const configEnv = "PADMON_CONFIG"

// CLI is the command line.
type CLI struct {
	ConfigFile string     `name:"config" help:"Configuration file (.yaml, .yml or .toml)" type:"path" env:"PADMON_CONFIG"`
	Log        LogOptions `embed:"" prefix:"log."`

	Run    RunCmd        `cmd:"" help:"Enumerate the pad and print its input reports"`
	Config ConfigCommand `cmd:"" help:"Manage configuration files"`
}

func main() {
	yamlPaths, tomlPaths := configPaths(findUserConfig(os.Args[1:]))

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("padmon"),
		kong.Description("Polled DWC2 USB host gamepad monitor"),
		kong.UsageOnError(),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	closer := cli.Log.Setup(os.Stderr)

	ctx.BindTo(os.Stdout, (*io.Writer)(nil))
	err := runThenClose(func() error { return ctx.Run() }, closer)
	ctx.FatalIfErrorf(err)
}

// runThenClose runs fn and closes c before returning fn's error.
func runThenClose(fn func() error, c io.Closer) error {
	defer func() { _ = c.Close() }()
	return fn()
}

// findUserConfig returns the configuration file named on the command line
// or in the environment, before kong has parsed anything.
func findUserConfig(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv(configEnv)
}

// configPaths returns the candidate configuration files per loader. The
// user's file comes first; files in the working directory follow.
func configPaths(user string) (yamlPaths, tomlPaths []string) {
	if user != "" {
		switch filepath.Ext(user) {
		case ".toml":
			tomlPaths = append(tomlPaths, user)
		default:
			yamlPaths = append(yamlPaths, user)
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return yamlPaths, tomlPaths
	}
	yamlPaths = append(yamlPaths,
		filepath.Join(wd, "padmon.yaml"),
		filepath.Join(wd, "padmon.yml"))
	tomlPaths = append(tomlPaths, filepath.Join(wd, "padmon.toml"))
	return yamlPaths, tomlPaths
}
