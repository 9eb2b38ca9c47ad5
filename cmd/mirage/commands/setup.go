package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"git.home.luguber.info/inful/mirage/internal/config"
)

// SetupCmd writes config.yml from config.sample.yml.
type SetupCmd struct {
	Title    string `help:"Blog title (prompted when empty)"`
	Subtitle string `help:"Blog subtitle (prompted when empty)"`
	Sample   string `help:"Sample configuration to start from" default:"config.sample.yml"`
}

func (s *SetupCmd) Run(_ *Global, root *CLI) error {
	return RunSetup(os.Stdin, os.Stdout, root.Config, s.Sample, s.Title, s.Subtitle)
}

// RunSetup prompts on in for any missing title/subtitle and writes configPath.
func RunSetup(in io.Reader, out io.Writer, configPath, samplePath, title, subtitle string) error {
	if _, err := os.Stat(configPath); err == nil {
		_, _ = fmt.Fprintln(out, "Setting up blog, but config file already exists")
		_, _ = fmt.Fprintln(out, "Existing config will be overwritten, or ctrl+c to exit")
	}

	reader := bufio.NewReader(in)
	if title == "" {
		title = prompt(reader, out, "Please enter a title for your blog (you can change this later):")
	}
	if subtitle == "" {
		subtitle = prompt(reader, out, "Please enter a subtitle for your blog:")
	}

	if err := config.WriteSetup(configPath, samplePath, title, subtitle); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "Config file written")
	_, _ = fmt.Fprintln(out, "Welcome to Mirage. Write posts as markdown files in /posts.")
	_, _ = fmt.Fprintln(out, "Run mirage compile to compile your blog.")
	return nil
}

func prompt(r *bufio.Reader, out io.Writer, question string) string {
	_, _ = fmt.Fprintf(out, "\n%s\n", question)
	line, _ := r.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
