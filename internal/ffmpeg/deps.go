package ffmpeg

import (
	"os"
	"os/exec"
)

// fileStatter abstracts existence checks on candidate binaries.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// envProvider abstracts environment and PATH lookup.
type envProvider interface {
	Getenv(key string) string
	LookPath(file string) (string, error)
}

var (
	_ fileStatter = osFileStatter{}
	_ envProvider = osEnvProvider{}
)

type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

type osEnvProvider struct{}

func (osEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (osEnvProvider) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}
