package snapcli

import (
	"bufio"
	"os"
	"reflect"

	"github.com/goaux/stacktrace/v2"
	"gopkg.in/yaml.v3"
)

// Config is the compiled-in configuration of a snapshot command.
type Config struct {
	Use     string
	Short   string
	Long    string
	Version string

	// Models lists the model types the command manages.
	Models []reflect.Type

	DefaultFolder string
	DefaultSeed   int64

	// Formatter is the command, with arguments, used by `create --format`.
	Formatter []string
}

// Settings is the content of the YAML file given by --config.
type Settings struct {
	Dir       string   `yaml:"dir"`
	Seed      *int64   `yaml:"seed"`
	MaxDepth  int      `yaml:"maxDepth"`
	MinSize   int      `yaml:"minSize"`
	MaxSize   int      `yaml:"maxSize"`
	Formatter []string `yaml:"formatter"`
}

func readSettings(path string) (*Settings, error) {
	f, err := stacktrace.Trace2(os.Open(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s := new(Settings)
	if err := stacktrace.Trace(yaml.NewDecoder(bufio.NewReader(f)).Decode(s)); err != nil {
		return nil, err
	}
	return s, nil
}
