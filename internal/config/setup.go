package config

import (
	"os"
	"strings"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
)

// SampleFile is the template the setup wizard rewrites into config.yml.
const SampleFile = "config.sample.yml"

// defaultSample is used when no config.sample.yml exists in the project.
const defaultSample = `blog-title: "My Blog"
blog-subtitle: "Thoughts and notes"
port: 8000
deploy:
  service: filesystem
  access-key: ""
  secret-key: ""
  container-name: "public"
watch:
  rebuild-interval: ""
metrics:
  enabled: false
history:
  path: ""
`

// RenderSetup rewrites the blog-title and blog-subtitle lines of sample with
// double-quoted, escaped values. All other lines are kept as-is.
func RenderSetup(sample, title, subtitle string) string {
	lines := strings.Split(sample, "\n")
	var b strings.Builder
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "blog-title"):
			b.WriteString(`blog-title: "` + quote(title) + `"`)
		case strings.HasPrefix(line, "blog-subtitle"):
			b.WriteString(`blog-subtitle: "` + quote(subtitle) + `"`)
		default:
			b.WriteString(line)
		}
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// WriteSetup writes configPath from samplePath (or the built-in sample).
func WriteSetup(configPath, samplePath, title, subtitle string) error {
	sample := defaultSample
	if data, err := os.ReadFile(samplePath); err == nil {
		sample = string(data)
	}
	out := RenderSetup(sample, title, subtitle)
	if err := os.WriteFile(configPath, []byte(out), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Fatal().
			Build()
	}
	return nil
}

func quote(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`)
}
